package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

func TestErrorBody(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"row", fmt.Errorf("parse: %w", &domain.RowError{Line: 3, Column: "Количество", Value: "x"}), http.StatusBadRequest},
		{"date", &domain.DateParseError{Line: 2, Value: "32.13.2024"}, http.StatusBadRequest},
		{"no rows", domain.ErrNoRows, http.StatusBadRequest},
		{"unreadable", fmt.Errorf("%w: bad zip", domain.ErrUnreadable), http.StatusBadRequest},
		{"not found", fmt.Errorf("products 9: %w", domain.ErrNotFound), http.StatusNotFound},
		{"conflict", domain.ErrConflict, http.StatusConflict},
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := errorBody(tc.err)
			assert.Equal(t, tc.status, status)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestErrorBodyDetails(t *testing.T) {
	_, body := errorBody(&domain.RowError{Line: 3, Column: "Цена", Value: "abc"})
	assert.Equal(t, gin.H{"line": 3, "column": "Цена", "value": "abc"}, body["details"])

	_, body = errorBody(&domain.SchemaError{Found: []string{"date", "sku"}})
	assert.Equal(t, gin.H{"found": []string{"date", "sku"}}, body["details"])
}

func TestBindJSONValidation(t *testing.T) {
	err := validate.Struct(registerRequest{Username: "anna", Email: "anna@example.com", Password: "secret1", StoreName: "S"})
	assert.NoError(t, err)

	err = validate.Struct(loginRequest{})
	status, body := errorBody(err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, map[string]string{"username": "is required", "password": "is required"}, body["details"])
}
