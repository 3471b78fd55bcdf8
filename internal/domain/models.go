// backend-go/internal/domain/models.go
package domain

import "time"

// DateLayout is the calendar-day format used for storage and JSON payloads.
const DateLayout = "2006-01-02"

// User owns products and sales records.
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	StoreName    string    `json:"store_name" db:"store_name"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Product is identified by (user, SKU). CurrentStock is maintained externally.
type Product struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	SKU          string    `json:"sku" db:"sku"`
	Name         string    `json:"name" db:"name"`
	CurrentStock float64   `json:"current_stock" db:"current_stock"`
	UnitPrice    float64   `json:"unit_price" db:"unit_price"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// SalesRecord is one day of sales for a product. At most one per (product, date).
type SalesRecord struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"user_id" db:"user_id"`
	ProductID    int64     `json:"product_id" db:"product_id"`
	Date         time.Time `json:"date" db:"sale_date"`
	QuantitySold float64   `json:"quantity_sold" db:"quantity_sold"`
	SalePrice    float64   `json:"sale_price" db:"sale_price"`
}

// SalesPoint is a (date, quantity) observation of a product's demand series.
type SalesPoint struct {
	Date     time.Time
	Quantity float64
}

// ForecastPoint is one predicted day of a product's horizon.
type ForecastPoint struct {
	ProductID         int64     `json:"product_id" db:"product_id"`
	Date              time.Time `json:"date" db:"forecast_date"`
	PredictedQuantity float64   `json:"predicted_quantity" db:"predicted_quantity"`
	LowerBound        float64   `json:"lower_bound" db:"lower_bound"`
	UpperBound        float64   `json:"upper_bound" db:"upper_bound"`
}

// DailyTotal is a per-day aggregate across products.
type DailyTotal struct {
	Date     time.Time
	Quantity float64
}

// SaleRow is a normalised upload row, independent of the source schema.
type SaleRow struct {
	Line     int
	Date     time.Time
	SKU      string
	Name     string
	Quantity float64
	Price    float64
	HasName  bool
	HasPrice bool
}

// Schema identifies an accepted upload layout.
type Schema string

const (
	SchemaAuto     Schema = "auto"
	SchemaFlexible Schema = "flexible"
	SchemaFixed    Schema = "fixed"
)

// DateRange is the inclusive span of sale dates in a batch.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// BatchResult reports what the sales repository persisted for one batch.
type BatchResult struct {
	RowsLoaded      int       `json:"rows_loaded"`
	RowsUpdated     int       `json:"rows_updated"`
	ProductsCreated int       `json:"products_created"`
	ProductsUpdated int       `json:"products_updated"`
	ProductIDs      []int64   `json:"-"`
	DateRange       DateRange `json:"date_range"`
}

// ForecastReport summarises a forecast engine run.
type ForecastReport struct {
	Forecasted []int64          `json:"forecasted"`
	Skipped    []int64          `json:"skipped"`
	Failed     map[int64]string `json:"failed,omitempty"`
}

// IngestSummary is returned to upload callers.
type IngestSummary struct {
	Status          string         `json:"status"`
	Schema          Schema         `json:"schema"`
	RowsLoaded      int            `json:"rows_loaded"`
	RowsUpdated     int            `json:"rows_updated"`
	RowsSkipped     int            `json:"rows_skipped"`
	ProductsCount   int            `json:"products_count"`
	ProductsCreated int            `json:"products_created"`
	ProductsUpdated int            `json:"products_updated"`
	DateRange       DateRange      `json:"date_range"`
	Forecast        ForecastReport `json:"forecast"`
}

// UploadedFile is an upload staged on local disk.
type UploadedFile struct {
	Filename string
	Path     string
	Size     int64
}
