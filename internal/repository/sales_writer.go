package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

// ProductDefaults controls how a schema creates and refreshes products.
type ProductDefaults struct {
	Stock     float64
	UnitPrice float64
	// NameFormat names a product when the upload carries no name; %s is the SKU.
	NameFormat      string
	RefreshExisting bool
	UpdateSalePrice bool
}

// SaveRows resolves or creates the product of every row and upserts one sale
// per (product, date). It must run inside SalesRepository.WithBatch.
func SaveRows(ctx context.Context, b SalesBatch, userID int64, rows []domain.SaleRow, defaults ProductDefaults) (*domain.BatchResult, error) {
	order, latest := latestBySKU(rows)

	result := &domain.BatchResult{}
	productIDs := make(map[string]int64, len(order))
	unitPrices := make(map[string]float64, len(order))

	for _, sku := range order {
		row := latest[sku]

		product, err := b.FindProduct(ctx, userID, sku)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			product = &domain.Product{
				UserID:       userID,
				SKU:          sku,
				Name:         productName(row, defaults.NameFormat),
				CurrentStock: defaults.Stock,
				UnitPrice:    defaults.UnitPrice,
			}
			if row.HasPrice {
				product.UnitPrice = row.Price
			}
			id, err := b.CreateProduct(ctx, product)
			if err != nil {
				return nil, fmt.Errorf("failed to create product %s: %w", sku, err)
			}
			product.ID = id
			result.ProductsCreated++
		case err != nil:
			return nil, fmt.Errorf("failed to find product %s: %w", sku, err)
		default:
			if defaults.RefreshExisting {
				if row.HasName {
					product.Name = row.Name
				}
				if row.HasPrice {
					product.UnitPrice = row.Price
				}
				if err := b.RefreshProduct(ctx, product.ID, product.Name, product.UnitPrice); err != nil {
					return nil, fmt.Errorf("failed to refresh product %s: %w", sku, err)
				}
			}
			result.ProductsUpdated++
		}

		productIDs[sku] = product.ID
		unitPrices[sku] = product.UnitPrice
		result.ProductIDs = append(result.ProductIDs, product.ID)
	}

	for _, row := range rows {
		record := domain.SalesRecord{
			UserID:       userID,
			ProductID:    productIDs[row.SKU],
			Date:         row.Date,
			QuantitySold: row.Quantity,
			SalePrice:    unitPrices[row.SKU],
		}
		if row.HasPrice {
			record.SalePrice = row.Price
		}

		inserted, err := b.UpsertSale(ctx, record, defaults.UpdateSalePrice)
		if err != nil {
			return nil, fmt.Errorf("failed to save sale for %s on %s (line %d): %w",
				row.SKU, row.Date.Format(domain.DateLayout), row.Line, err)
		}
		if inserted {
			result.RowsLoaded++
		} else {
			result.RowsUpdated++
		}
	}

	result.DateRange = rowsDateRange(rows)
	return result, nil
}

// latestBySKU returns SKUs in first-appearance order and, per SKU, the row with
// the latest date. Ties go to the row further down the file.
func latestBySKU(rows []domain.SaleRow) ([]string, map[string]domain.SaleRow) {
	var order []string
	latest := make(map[string]domain.SaleRow)
	for _, row := range rows {
		current, ok := latest[row.SKU]
		if !ok {
			order = append(order, row.SKU)
		}
		if !ok || !row.Date.Before(current.Date) {
			latest[row.SKU] = row
		}
	}
	return order, latest
}

func productName(row domain.SaleRow, format string) string {
	if row.HasName {
		return row.Name
	}
	if format == "" || !strings.Contains(format, "%s") {
		return row.SKU
	}
	return fmt.Sprintf(format, row.SKU)
}

func rowsDateRange(rows []domain.SaleRow) domain.DateRange {
	if len(rows) == 0 {
		return domain.DateRange{}
	}
	first, last := rows[0].Date, rows[0].Date
	for _, row := range rows[1:] {
		if row.Date.Before(first) {
			first = row.Date
		}
		if row.Date.After(last) {
			last = row.Date
		}
	}
	return domain.DateRange{Start: first.Format(domain.DateLayout), End: last.Format(domain.DateLayout)}
}
