package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository"
)

type salesRepository struct {
	db *DB
}

func NewSalesRepository(db *DB) repository.SalesRepository {
	return &salesRepository{db: db}
}

func (r *salesRepository) WithBatch(ctx context.Context, userID int64, fn func(repository.SalesBatch) error) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := r.db.lockRow(ctx, tx, "users", userID); err != nil {
			return err
		}
		return fn(&salesBatch{tx: tx})
	})
}

func (r *salesRepository) CountSales(ctx context.Context, userID int64) (int, error) {
	var count int
	query := r.db.Rebind(`SELECT COUNT(*) FROM sales_records WHERE user_id = ?`)
	if err := r.db.GetContext(ctx, &count, query, userID); err != nil {
		return 0, fmt.Errorf("error counting sales: %w", err)
	}
	return count, nil
}

func (r *salesRepository) DateRange(ctx context.Context, userID int64) (domain.DateRange, error) {
	var first, last sqlDate
	query := r.db.Rebind(`SELECT MIN(sale_date), MAX(sale_date) FROM sales_records WHERE user_id = ?`)
	if err := r.db.QueryRowxContext(ctx, query, userID).Scan(&first, &last); err != nil {
		return domain.DateRange{}, fmt.Errorf("error getting sales date range: %w", err)
	}
	if first.IsZero() {
		return domain.DateRange{}, nil
	}
	return domain.DateRange{Start: dateArg(first.Time), End: dateArg(last.Time)}, nil
}

type dailyRow struct {
	Date     sqlDate `db:"sale_date"`
	Quantity float64 `db:"quantity"`
}

func (r *salesRepository) DailyTotals(ctx context.Context, userID int64, from time.Time) ([]domain.DailyTotal, error) {
	query := r.db.Rebind(`
		SELECT sale_date, SUM(quantity_sold) AS quantity
		FROM sales_records
		WHERE user_id = ? AND sale_date >= ?
		GROUP BY sale_date
		ORDER BY sale_date
	`)

	var rows []dailyRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, dateArg(from)); err != nil {
		return nil, fmt.Errorf("error getting daily sales totals: %w", err)
	}

	totals := make([]domain.DailyTotal, 0, len(rows))
	for _, row := range rows {
		totals = append(totals, domain.DailyTotal{Date: row.Date.Time, Quantity: row.Quantity})
	}
	return totals, nil
}

func (r *salesRepository) ProductSales(ctx context.Context, productID int64, from time.Time) ([]domain.SalesPoint, error) {
	query := r.db.Rebind(`
		SELECT sale_date, quantity_sold AS quantity
		FROM sales_records
		WHERE product_id = ? AND sale_date >= ?
		ORDER BY sale_date
	`)

	var rows []dailyRow
	if err := r.db.SelectContext(ctx, &rows, query, productID, dateArg(from)); err != nil {
		return nil, fmt.Errorf("error getting product sales: %w", err)
	}
	return toSalesPoints(rows), nil
}

func (r *salesRepository) AverageQuantities(ctx context.Context, userID int64, from time.Time) (map[int64]float64, error) {
	query := r.db.Rebind(`
		SELECT product_id, AVG(quantity_sold) AS avg_quantity
		FROM sales_records
		WHERE user_id = ? AND sale_date >= ?
		GROUP BY product_id
	`)

	var rows []struct {
		ProductID   int64   `db:"product_id"`
		AvgQuantity float64 `db:"avg_quantity"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, userID, dateArg(from)); err != nil {
		return nil, fmt.Errorf("error getting average sales: %w", err)
	}

	avg := make(map[int64]float64, len(rows))
	for _, row := range rows {
		avg[row.ProductID] = row.AvgQuantity
	}
	return avg, nil
}

// salesBatch implements repository.SalesBatch on an open transaction.
type salesBatch struct {
	tx *sqlx.Tx
}

func (b *salesBatch) ExistingSaleDates(ctx context.Context, userID int64, skus []string) (map[string][]time.Time, error) {
	out := make(map[string][]time.Time, len(skus))
	if len(skus) == 0 {
		return out, nil
	}

	query, args, err := sqlx.In(`
		SELECT p.sku, s.sale_date
		FROM sales_records s
		JOIN products p ON p.id = s.product_id
		WHERE p.user_id = ? AND p.sku IN (?)
	`, userID, skus)
	if err != nil {
		return nil, fmt.Errorf("failed to build history query: %w", err)
	}

	var rows []struct {
		SKU  string  `db:"sku"`
		Date sqlDate `db:"sale_date"`
	}
	if err := b.tx.SelectContext(ctx, &rows, b.tx.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load stored sale dates: %w", err)
	}

	for _, row := range rows {
		out[row.SKU] = append(out[row.SKU], row.Date.Time)
	}
	return out, nil
}

func (b *salesBatch) FindProduct(ctx context.Context, userID int64, sku string) (*domain.Product, error) {
	var p domain.Product
	query := b.tx.Rebind(`SELECT ` + productColumns + ` FROM products WHERE user_id = ? AND sku = ?`)
	if err := b.tx.GetContext(ctx, &p, query, userID, sku); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (b *salesBatch) CreateProduct(ctx context.Context, p *domain.Product) (int64, error) {
	query := b.tx.Rebind(`
		INSERT INTO products (user_id, sku, name, current_stock, unit_price)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`)

	var id int64
	if err := b.tx.QueryRowxContext(ctx, query, p.UserID, p.SKU, p.Name, p.CurrentStock, p.UnitPrice).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("product %s: %w", p.SKU, domain.ErrConflict)
		}
		return 0, err
	}
	return id, nil
}

func (b *salesBatch) RefreshProduct(ctx context.Context, productID int64, name string, unitPrice float64) error {
	query := b.tx.Rebind(`
		UPDATE products
		SET name = ?, unit_price = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`)
	_, err := b.tx.ExecContext(ctx, query, name, unitPrice, productID)
	return err
}

func (b *salesBatch) UpsertSale(ctx context.Context, rec domain.SalesRecord, updatePrice bool) (bool, error) {
	var existing int
	exists := b.tx.Rebind(`SELECT COUNT(*) FROM sales_records WHERE product_id = ? AND sale_date = ?`)
	if err := b.tx.GetContext(ctx, &existing, exists, rec.ProductID, dateArg(rec.Date)); err != nil {
		return false, err
	}

	onConflict := `quantity_sold = excluded.quantity_sold`
	if updatePrice {
		onConflict += `, sale_price = excluded.sale_price`
	}

	query := b.tx.Rebind(`
		INSERT INTO sales_records (user_id, product_id, sale_date, quantity_sold, sale_price)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (product_id, sale_date)
		DO UPDATE SET ` + onConflict)

	if _, err := b.tx.ExecContext(ctx, query, rec.UserID, rec.ProductID, dateArg(rec.Date), rec.QuantitySold, rec.SalePrice); err != nil {
		return false, err
	}
	return existing == 0, nil
}

func toSalesPoints(rows []dailyRow) []domain.SalesPoint {
	points := make([]domain.SalesPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, domain.SalesPoint{Date: row.Date.Time, Quantity: row.Quantity})
	}
	return points
}
