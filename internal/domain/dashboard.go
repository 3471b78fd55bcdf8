package domain

// StockoutItem is a product whose cover is below the critical threshold.
type StockoutItem struct {
	ProductID     int64   `json:"product_id"`
	Name          string  `json:"name"`
	SKU           string  `json:"sku"`
	CurrentStock  float64 `json:"current_stock"`
	AvgDailySales float64 `json:"avg_daily_sales"`
	DaysLeft      int     `json:"days_left"`
	StockValue    float64 `json:"stock_value"`
}

// OverstockItem is a product whose cover exceeds the excess threshold.
type OverstockItem struct {
	ProductID      int64   `json:"product_id"`
	Name           string  `json:"name"`
	SKU            string  `json:"sku"`
	CurrentStock   float64 `json:"current_stock"`
	DaysOfStock    int     `json:"days_of_stock"`
	ExcessQty      int     `json:"excess_qty"`
	OverstockValue float64 `json:"overstock_value"`
}

// Recommendation is a suggested purchase for a stockout-risk product.
type Recommendation struct {
	ProductID     int64    `json:"product_id"`
	Name          string   `json:"name"`
	SKU           string   `json:"sku"`
	CurrentStock  float64  `json:"current_stock"`
	AvgDailySales float64  `json:"avg_daily_sales"`
	DaysLeft      int      `json:"days_left"`
	SuggestedQty  int      `json:"suggested_qty"`
	Cost          float64  `json:"cost"`
	Priority      Priority `json:"priority"`
}

// SalesHistoryPoint is one day of the aggregated sales chart.
type SalesHistoryPoint struct {
	Date   string  `json:"date"`
	Actual float64 `json:"actual"`
}

// ForecastSeriesPoint is one day of the aggregated forecast chart.
type ForecastSeriesPoint struct {
	Date     string  `json:"date"`
	Forecast float64 `json:"forecast"`
}

// DashboardStats carries counters shown under the dashboard cards.
type DashboardStats struct {
	TotalProducts     int       `json:"total_products"`
	TotalSalesRecords int       `json:"total_sales_records"`
	CriticalCount     int       `json:"critical_count"`
	OverstockCount    int       `json:"overstock_count"`
	DateRange         DateRange `json:"date_range"`
}

// Dashboard is the read-side payload of the main analytics view.
type Dashboard struct {
	RiskOfStockout   string                `json:"risk_of_stockout"`
	OverstockValue   string                `json:"overstock_value"`
	RiskTotal        float64               `json:"risk_total"`
	OverstockTotal   float64               `json:"overstock_total"`
	ForecastAccuracy string                `json:"forecast_accuracy"`
	AccuracyKind     string                `json:"accuracy_kind"`
	UrgentReorders   int                   `json:"urgent_reorders"`
	SalesHistory     []SalesHistoryPoint   `json:"sales_history"`
	ForecastData     []ForecastSeriesPoint `json:"forecast_data"`
	Recommendations  []Recommendation      `json:"recommendations"`
	Overstock        []OverstockItem       `json:"overstock"`
	Stats            DashboardStats        `json:"stats"`
	Profile          string                `json:"profile"`
	Message          string                `json:"message,omitempty"`
}

// HistoryPoint is one recorded day in the product detail view.
type HistoryPoint struct {
	Date     string  `json:"date"`
	Quantity float64 `json:"quantity"`
}

// ForecastBand is one forecast day with its uncertainty interval.
type ForecastBand struct {
	Date      string  `json:"date"`
	Yhat      float64 `json:"yhat"`
	YhatLower float64 `json:"yhat_lower"`
	YhatUpper float64 `json:"yhat_upper"`
}

// StockInfo describes replenishment metadata for a single product.
type StockInfo struct {
	WillEndAt       string  `json:"will_end_at"`
	DaysLeft        int     `json:"days_left"`
	SafetyStockDays float64 `json:"safety_stock_days"`
	LeadTimeDays    float64 `json:"lead_time_days"`
	ReorderPoint    int     `json:"reorder_point"`
	SuggestedOrder  int     `json:"suggested_order"`
}

// ProductStatistics summarises the detail history window.
type ProductStatistics struct {
	TotalSold    float64 `json:"total_sold"`
	AvgDaily     float64 `json:"avg_daily"`
	MaxDaily     float64 `json:"max_daily"`
	MinDaily     float64 `json:"min_daily"`
	RecordsCount int     `json:"records_count"`
}

// ProductDetail is the per-product analytics payload.
type ProductDetail struct {
	ProductID     int64             `json:"product_id"`
	ProductName   string            `json:"product_name"`
	SKU           string            `json:"sku"`
	CurrentStock  float64           `json:"current_stock"`
	UnitPrice     float64           `json:"unit_price"`
	AvgDailySales float64           `json:"avg_daily_sales"`
	History       []HistoryPoint    `json:"history_data"`
	Forecast      []ForecastBand    `json:"forecast_30_days"`
	Factors       []string          `json:"factors"`
	Accuracy      string            `json:"accuracy"`
	AccuracyKind  string            `json:"accuracy_kind"`
	StockInfo     StockInfo         `json:"stock_info"`
	Statistics    ProductStatistics `json:"statistics"`
}

// ExportRow is one product line of the purchase recommendation workbook.
type ExportRow struct {
	SKU            string
	Name           string
	CurrentStock   float64
	UnitPrice      float64
	StockValue     float64
	AvgDailySales  float64
	DaysLeft       int
	SuggestedQty   int
	PurchaseAmount float64
	Priority       Priority
}
