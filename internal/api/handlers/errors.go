package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/pkg/logger"
)

// respondError maps domain errors onto HTTP statuses with an
// {"error": ..., "details": ...} body.
func respondError(c *gin.Context, err error) {
	status, body := errorBody(err)
	if status >= http.StatusInternalServerError {
		logger.Log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

func errorBody(err error) (int, gin.H) {
	var (
		validationErrs validator.ValidationErrors
		schemaErr      *domain.SchemaError
		historyErr     *domain.InsufficientHistoryError
		dateErr        *domain.DateParseError
		rowErr         *domain.RowError
	)

	switch {
	case errors.As(err, &validationErrs):
		return http.StatusBadRequest, gin.H{"error": "validation failed", "details": validationDetails(validationErrs)}
	case errors.Is(err, errBadBody):
		return http.StatusBadRequest, gin.H{"error": err.Error()}
	case errors.As(err, &schemaErr):
		return http.StatusBadRequest, gin.H{"error": err.Error(), "details": gin.H{"found": schemaErr.Found}}
	case errors.As(err, &historyErr):
		return http.StatusBadRequest, gin.H{"error": err.Error(), "details": gin.H{
			"sku":      historyErr.SKU,
			"days":     historyErr.Days,
			"required": historyErr.Required,
		}}
	case errors.As(err, &dateErr):
		return http.StatusBadRequest, gin.H{"error": err.Error(), "details": gin.H{"line": dateErr.Line, "value": dateErr.Value}}
	case errors.As(err, &rowErr):
		return http.StatusBadRequest, gin.H{"error": err.Error(), "details": gin.H{
			"line":   rowErr.Line,
			"column": rowErr.Column,
			"value":  rowErr.Value,
		}}
	case domain.IsValidation(err):
		return http.StatusBadRequest, gin.H{"error": err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, gin.H{"error": err.Error()}
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, gin.H{"error": err.Error()}
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, gin.H{"error": err.Error()}
	default:
		return http.StatusInternalServerError, gin.H{"error": "internal server error"}
	}
}
