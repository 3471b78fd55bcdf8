package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/andresuchdata/stockcast/backend-go/internal/api/middleware"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/service"
	"github.com/andresuchdata/stockcast/backend-go/pkg/logger"
)

type Uploader interface {
	Ingest(ctx context.Context, req service.UploadRequest) (*domain.IngestSummary, error)
}

type SalesHandler struct {
	uploader  Uploader
	uploadDir string
	maxBytes  int64
}

func NewSalesHandler(uploader Uploader, uploadDir string, maxBytes int64) *SalesHandler {
	if uploadDir == "" {
		uploadDir = os.TempDir()
	}
	return &SalesHandler{uploader: uploader, uploadDir: uploadDir, maxBytes: maxBytes}
}

var errMissingFile = fmt.Errorf("%w: multipart field \"file\" is required", errBadBody)

// Upload ingests one sales file synchronously and returns the ingest summary.
func (h *SalesHandler) Upload(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	}

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("upload exceeds %d bytes", h.maxBytes),
			})
			return
		}
		respondError(c, errMissingFile)
		return
	}

	staged, err := h.stage(header.Filename)
	if err != nil {
		respondError(c, err)
		return
	}
	defer func() {
		if err := os.Remove(staged.Path); err != nil && !os.IsNotExist(err) {
			logger.Log.Warn().Err(err).Str("path", staged.Path).Msg("failed to remove staged upload")
		}
	}()

	if err := c.SaveUploadedFile(header, staged.Path); err != nil {
		respondError(c, fmt.Errorf("save upload: %w", err))
		return
	}

	data, err := os.ReadFile(staged.Path)
	if err != nil {
		respondError(c, fmt.Errorf("read staged upload: %w", err))
		return
	}
	staged.Size = int64(len(data))

	logger.Log.Debug().Str("filename", staged.Filename).Int64("size", staged.Size).Msg("upload staged")

	summary, err := h.uploader.Ingest(c.Request.Context(), service.UploadRequest{
		UserID:    userID,
		Filename:  staged.Filename,
		Data:      data,
		Separator: c.PostForm("separator"),
		Encoding:  c.PostForm("encoding"),
		Schema:    c.PostForm("schema"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// stage picks a collision-free path for an upload under uploadDir.
func (h *SalesHandler) stage(filename string) (*domain.UploadedFile, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	name := filepath.Base(filename)
	ext := strings.ToLower(filepath.Ext(name))
	return &domain.UploadedFile{
		Filename: name,
		Path:     filepath.Join(h.uploadDir, uuid.NewString()+ext),
	}, nil
}
