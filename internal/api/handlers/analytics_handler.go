package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/stockcast/backend-go/internal/api/middleware"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/export"
	"github.com/andresuchdata/stockcast/backend-go/pkg/logger"
)

type AnalyticsService interface {
	Dashboard(ctx context.Context, userID int64) (*domain.Dashboard, error)
	ProductDetail(ctx context.Context, userID, productID int64) (*domain.ProductDetail, error)
	ListProducts(ctx context.Context, userID int64) ([]domain.Product, error)
	UpdateStock(ctx context.Context, userID, productID int64, stock float64) (*domain.Product, error)
	RunForecasts(ctx context.Context, userID int64) (domain.ForecastReport, error)
	ExportRows(ctx context.Context, userID int64) ([]domain.ExportRow, error)
}

type AnalyticsHandler struct {
	service AnalyticsService
	now     func() time.Time
}

func NewAnalyticsHandler(service AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{service: service, now: time.Now}
}

type updateStockRequest struct {
	CurrentStock *float64 `json:"current_stock" validate:"required,gte=0"`
}

func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	dashboard, err := h.service.Dashboard(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

func (h *AnalyticsHandler) ListProducts(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	products, err := h.service.ListProducts(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	c.JSON(http.StatusOK, gin.H{"products": products, "total": len(products)})
}

func (h *AnalyticsHandler) ProductDetail(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	productID, ok := productIDParam(c)
	if !ok {
		return
	}

	detail, err := h.service.ProductDetail(c.Request.Context(), userID, productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

func (h *AnalyticsHandler) UpdateStock(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	productID, ok := productIDParam(c)
	if !ok {
		return
	}

	var req updateStockRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, err)
		return
	}

	product, err := h.service.UpdateStock(c.Request.Context(), userID, productID, *req.CurrentStock)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *AnalyticsHandler) RunForecasts(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	report, err := h.service.RunForecasts(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ExportExcel streams the purchase recommendation workbook.
func (h *AnalyticsHandler) ExportExcel(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	rows, err := h.service.ExportRows(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := export.Filename(h.now().Format("20060102_150405"))
	c.Header("Content-Type", export.ContentTypeXLSX)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Status(http.StatusOK)

	if err := export.WriteRecommendations(c.Writer, rows); err != nil {
		logger.Log.Error().Err(err).Int64("user_id", userID).Msg("excel export failed")
		_ = c.Error(err)
	}
}

func productIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return 0, false
	}
	return id, true
}
