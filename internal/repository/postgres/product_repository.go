package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository"
)

const productColumns = `id, user_id, sku, name, current_stock, unit_price, created_at, updated_at`

type productRepository struct {
	db *DB
}

func NewProductRepository(db *DB) repository.ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Product, error) {
	query := r.db.Rebind(`SELECT ` + productColumns + ` FROM products WHERE user_id = ? ORDER BY id`)

	var products []domain.Product
	if err := r.db.SelectContext(ctx, &products, query, userID); err != nil {
		return nil, fmt.Errorf("error listing products: %w", err)
	}
	return products, nil
}

func (r *productRepository) GetByID(ctx context.Context, userID, productID int64) (*domain.Product, error) {
	query := r.db.Rebind(`SELECT ` + productColumns + ` FROM products WHERE id = ? AND user_id = ?`)

	var p domain.Product
	if err := r.db.GetContext(ctx, &p, query, productID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("error getting product %d: %w", productID, err)
	}
	return &p, nil
}

func (r *productRepository) UpdateStock(ctx context.Context, userID, productID int64, stock float64) error {
	query := r.db.Rebind(`
		UPDATE products
		SET current_stock = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ?
	`)

	res, err := r.db.ExecContext(ctx, query, stock, productID, userID)
	if err != nil {
		return fmt.Errorf("error updating stock of product %d: %w", productID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
