package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

// HistoryReader exposes the sale days already stored for a user's SKUs.
type HistoryReader interface {
	ExistingSaleDates(ctx context.Context, userID int64, skus []string) (map[string][]time.Time, error)
}

// ValidateHistory rejects the whole batch when any SKU has fewer than minDays
// distinct sale days across stored history and the incoming rows.
func ValidateHistory(ctx context.Context, history HistoryReader, userID int64, rows []domain.SaleRow, minDays int) error {
	if minDays <= 0 || len(rows) == 0 {
		return nil
	}

	var order []string
	days := make(map[string]map[string]struct{})
	for _, row := range rows {
		set, ok := days[row.SKU]
		if !ok {
			set = make(map[string]struct{})
			days[row.SKU] = set
			order = append(order, row.SKU)
		}
		set[row.Date.Format(domain.DateLayout)] = struct{}{}
	}

	stored, err := history.ExistingSaleDates(ctx, userID, order)
	if err != nil {
		return fmt.Errorf("failed to load stored history: %w", err)
	}

	for _, sku := range order {
		set := days[sku]
		for _, d := range stored[sku] {
			set[d.Format(domain.DateLayout)] = struct{}{}
		}
		if len(set) < minDays {
			return &domain.InsufficientHistoryError{SKU: sku, Days: len(set), Required: minDays}
		}
	}

	return nil
}
