package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

type stubHistory struct {
	dates map[string][]time.Time
	err   error
	skus  []string
}

func (s *stubHistory) ExistingSaleDates(_ context.Context, _ int64, skus []string) (map[string][]time.Time, error) {
	s.skus = skus
	return s.dates, s.err
}

func dailyRows(sku string, start time.Time, days int) []domain.SaleRow {
	rows := make([]domain.SaleRow, 0, days)
	for i := 0; i < days; i++ {
		rows = append(rows, domain.SaleRow{SKU: sku, Date: start.AddDate(0, 0, i), Quantity: 1})
	}
	return rows
}

func TestValidateHistoryPasses(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := dailyRows("A", start, 30)

	err := ValidateHistory(context.Background(), &stubHistory{}, 1, rows, 30)
	require.NoError(t, err)
}

func TestValidateHistoryRejectsWholeBatch(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := append(dailyRows("A", start, 40), dailyRows("B", start, 29)...)

	history := &stubHistory{}
	err := ValidateHistory(context.Background(), history, 1, rows, 30)

	var histErr *domain.InsufficientHistoryError
	require.True(t, errors.As(err, &histErr))
	assert.Equal(t, "B", histErr.SKU)
	assert.Equal(t, 29, histErr.Days)
	assert.Equal(t, 30, histErr.Required)
	assert.Equal(t, []string{"A", "B"}, history.skus)
}

func TestValidateHistoryCountsStoredAndDuplicateDays(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// 10 new days, 5 of them already stored, plus 20 older stored days: 30 distinct.
	rows := dailyRows("A", start, 10)
	rows = append(rows, dailyRows("A", start, 3)...)

	var stored []time.Time
	for i := -20; i < 5; i++ {
		stored = append(stored, start.AddDate(0, 0, i))
	}

	err := ValidateHistory(context.Background(), &stubHistory{dates: map[string][]time.Time{"A": stored}}, 1, rows, 30)
	require.NoError(t, err)

	err = ValidateHistory(context.Background(), &stubHistory{dates: map[string][]time.Time{"A": stored[1:]}}, 1, rows, 30)
	var histErr *domain.InsufficientHistoryError
	require.True(t, errors.As(err, &histErr))
	assert.Equal(t, 29, histErr.Days)
}

func TestValidateHistoryPropagatesStoreError(t *testing.T) {
	rows := dailyRows("A", time.Now(), 1)
	boom := errors.New("boom")

	err := ValidateHistory(context.Background(), &stubHistory{err: boom}, 1, rows, 30)
	assert.ErrorIs(t, err, boom)
}
