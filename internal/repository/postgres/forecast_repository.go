package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository"
)

type forecastRepository struct {
	db *DB
}

func NewForecastRepository(db *DB) repository.ForecastRepository {
	return &forecastRepository{db: db}
}

// LoadSeries returns the full ordered demand history of a product.
func (r *forecastRepository) LoadSeries(ctx context.Context, productID int64) ([]domain.SalesPoint, error) {
	query := r.db.Rebind(`
		SELECT sale_date, quantity_sold AS quantity
		FROM sales_records
		WHERE product_id = ?
		ORDER BY sale_date
	`)

	var rows []dailyRow
	if err := r.db.SelectContext(ctx, &rows, query, productID); err != nil {
		return nil, fmt.Errorf("error loading series of product %d: %w", productID, err)
	}
	return toSalesPoints(rows), nil
}

func (r *forecastRepository) ReplaceForecast(ctx context.Context, productID int64, points []domain.ForecastPoint) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := r.db.lockRow(ctx, tx, "products", productID); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM forecasts WHERE product_id = ?`), productID); err != nil {
			return fmt.Errorf("failed to delete forecasts of product %d: %w", productID, err)
		}

		insert := tx.Rebind(`
			INSERT INTO forecasts (product_id, forecast_date, predicted_quantity, lower_bound, upper_bound)
			VALUES (?, ?, ?, ?, ?)
		`)
		stmt, err := tx.PreparexContext(ctx, insert)
		if err != nil {
			return fmt.Errorf("failed to prepare forecast insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range points {
			if _, err := stmt.ExecContext(ctx, productID, dateArg(p.Date), p.PredictedQuantity, p.LowerBound, p.UpperBound); err != nil {
				return fmt.Errorf("failed to insert forecast for %s: %w", dateArg(p.Date), err)
			}
		}
		return nil
	})
}

func (r *forecastRepository) ListByProduct(ctx context.Context, productID int64) ([]domain.ForecastPoint, error) {
	query := r.db.Rebind(`
		SELECT product_id, forecast_date, predicted_quantity, lower_bound, upper_bound
		FROM forecasts
		WHERE product_id = ?
		ORDER BY forecast_date
	`)

	var rows []struct {
		ProductID         int64   `db:"product_id"`
		Date              sqlDate `db:"forecast_date"`
		PredictedQuantity float64 `db:"predicted_quantity"`
		LowerBound        float64 `db:"lower_bound"`
		UpperBound        float64 `db:"upper_bound"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, productID); err != nil {
		return nil, fmt.Errorf("error listing forecasts of product %d: %w", productID, err)
	}

	points := make([]domain.ForecastPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, domain.ForecastPoint{
			ProductID:         row.ProductID,
			Date:              row.Date.Time,
			PredictedQuantity: row.PredictedQuantity,
			LowerBound:        row.LowerBound,
			UpperBound:        row.UpperBound,
		})
	}
	return points, nil
}

// DailyTotals sums stored forecasts per day across all products of a user.
func (r *forecastRepository) DailyTotals(ctx context.Context, userID int64) ([]domain.DailyTotal, error) {
	query := r.db.Rebind(`
		SELECT f.forecast_date AS sale_date, SUM(f.predicted_quantity) AS quantity
		FROM forecasts f
		JOIN products p ON p.id = f.product_id
		WHERE p.user_id = ?
		GROUP BY f.forecast_date
		ORDER BY f.forecast_date
	`)

	var rows []dailyRow
	if err := r.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("error getting forecast totals: %w", err)
	}

	totals := make([]domain.DailyTotal, 0, len(rows))
	for _, row := range rows {
		totals = append(totals, domain.DailyTotal{Date: row.Date.Time, Quantity: row.Quantity})
	}
	return totals, nil
}
