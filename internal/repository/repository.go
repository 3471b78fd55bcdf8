// backend-go/internal/repository/repository.go
package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

// SalesBatch is the transactional view handed to a batch callback. All calls
// share one transaction with the owning user row locked.
type SalesBatch interface {
	ExistingSaleDates(ctx context.Context, userID int64, skus []string) (map[string][]time.Time, error)
	FindProduct(ctx context.Context, userID int64, sku string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product *domain.Product) (int64, error)
	RefreshProduct(ctx context.Context, productID int64, name string, unitPrice float64) error
	UpsertSale(ctx context.Context, record domain.SalesRecord, updatePrice bool) (inserted bool, err error)
}

type SalesRepository interface {
	// WithBatch runs fn in a single transaction; any error rolls everything back.
	WithBatch(ctx context.Context, userID int64, fn func(SalesBatch) error) error

	CountSales(ctx context.Context, userID int64) (int, error)
	DateRange(ctx context.Context, userID int64) (domain.DateRange, error)
	DailyTotals(ctx context.Context, userID int64, from time.Time) ([]domain.DailyTotal, error)
	ProductSales(ctx context.Context, productID int64, from time.Time) ([]domain.SalesPoint, error)
	AverageQuantities(ctx context.Context, userID int64, from time.Time) (map[int64]float64, error)
}

type ProductRepository interface {
	ListByUser(ctx context.Context, userID int64) ([]domain.Product, error)
	GetByID(ctx context.Context, userID, productID int64) (*domain.Product, error)
	UpdateStock(ctx context.Context, userID, productID int64, stock float64) error
}

type ForecastRepository interface {
	LoadSeries(ctx context.Context, productID int64) ([]domain.SalesPoint, error)
	// ReplaceForecast deletes every stored point of the product and inserts points atomically.
	ReplaceForecast(ctx context.Context, productID int64, points []domain.ForecastPoint) error
	ListByProduct(ctx context.Context, productID int64) ([]domain.ForecastPoint, error)
	DailyTotals(ctx context.Context, userID int64) ([]domain.DailyTotal, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}
