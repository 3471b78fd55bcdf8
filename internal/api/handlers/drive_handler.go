package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/stockcast/backend-go/internal/api/middleware"
	"github.com/andresuchdata/stockcast/backend-go/internal/drive"
)

type DriveImporter interface {
	Import(ctx context.Context, userID int64, folderID string) (*drive.ImportReport, error)
}

type DriveHandler struct {
	importer DriveImporter
}

func NewDriveHandler(importer DriveImporter) *DriveHandler {
	return &DriveHandler{importer: importer}
}

type driveImportRequest struct {
	FolderID string `json:"folder_id" validate:"omitempty,max=200"`
}

// Import pulls every CSV and XLSX file of a drive folder into the user's sales.
func (h *DriveHandler) Import(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	var req driveImportRequest
	if c.Request.ContentLength > 0 {
		if err := bindJSON(c, &req); err != nil {
			respondError(c, err)
			return
		}
	}

	report, err := h.importer.Import(c.Request.Context(), userID, req.FolderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
