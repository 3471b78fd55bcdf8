package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

const (
	// AccuracyKindHeuristic marks accuracy figures bucketed by record count
	// rather than measured against held-out data.
	AccuracyKindHeuristic = "heuristic"

	detailAccuracy  = "92%"
	notAvailable    = "N/A"
	noDataMessage   = "Нет данных. Загрузите CSV файл с историей продаж"
	noSalesEndLabel = "Нет продаж"

	trendWindow    = 7
	trendThreshold = 10.0
)

// DashboardInput is everything the dashboard derives from.
type DashboardInput struct {
	Products []domain.Product
	// Averages maps product id to mean recorded quantity over the demand window.
	Averages     map[int64]float64
	SalesHistory []domain.DailyTotal
	Forecast     []domain.DailyTotal
	TotalRecords int
	DateRange    domain.DateRange
}

// DetailInput is everything a product detail derives from.
type DetailInput struct {
	Product  domain.Product
	Average  float64
	History  []domain.SalesPoint
	Forecast []domain.ForecastPoint
}

// Calculator turns stored sales, stock and forecasts into inventory analytics.
// It performs no I/O.
type Calculator struct {
	policy Policy
	now    func() time.Time
}

func NewCalculator(policy Policy) *Calculator {
	return &Calculator{policy: policy, now: time.Now}
}

// WithClock replaces the clock used to anchor "today".
func (c *Calculator) WithClock(now func() time.Time) *Calculator {
	c.now = now
	return c
}

func (c *Calculator) Policy() Policy {
	return c.policy
}

// Today is the current calendar day in UTC.
func (c *Calculator) Today() time.Time {
	return startOfDay(c.now().UTC())
}

// DaysUntilStockout returns stock/avg, or NoDemandDays when there is no demand.
func DaysUntilStockout(stock, avg float64) float64 {
	if avg <= 0 {
		return NoDemandDays
	}
	return stock / avg
}

func (c *Calculator) isCritical(stock, days float64) bool {
	if c.policy.Profile == ProfileQuantity {
		return stock < c.policy.CriticalStockQty
	}
	return days < c.policy.CriticalCoverDays
}

func (c *Calculator) isOverstock(stock, avg, days float64) bool {
	if c.policy.Profile == ProfileQuantity {
		return stock > c.policy.ExcessStockQty
	}
	return avg > 0 && days > c.policy.ExcessCoverDays
}

// Dashboard computes the main analytics view.
func (c *Calculator) Dashboard(in DashboardInput) domain.Dashboard {
	symbol := c.policy.CurrencySymbol

	if len(in.Products) == 0 {
		return domain.Dashboard{
			RiskOfStockout:   FormatCurrency(0, symbol),
			OverstockValue:   FormatCurrency(0, symbol),
			ForecastAccuracy: notAvailable,
			AccuracyKind:     AccuracyKindHeuristic,
			SalesHistory:     []domain.SalesHistoryPoint{},
			ForecastData:     []domain.ForecastSeriesPoint{},
			Recommendations:  []domain.Recommendation{},
			Overstock:        []domain.OverstockItem{},
			Stats:            domain.DashboardStats{DateRange: domain.DateRange{Start: notAvailable, End: notAvailable}},
			Profile:          c.policy.Profile,
			Message:          noDataMessage,
		}
	}

	var (
		riskTotal      float64
		overstockTotal float64
		critical       []domain.StockoutItem
		overstock      = []domain.OverstockItem{}
	)

	for _, p := range in.Products {
		avg := in.Averages[p.ID]
		days := DaysUntilStockout(p.CurrentStock, avg)

		if c.isCritical(p.CurrentStock, days) {
			value := p.CurrentStock * p.UnitPrice
			riskTotal += value
			critical = append(critical, domain.StockoutItem{
				ProductID:     p.ID,
				Name:          p.Name,
				SKU:           p.SKU,
				CurrentStock:  p.CurrentStock,
				AvgDailySales: avg,
				DaysLeft:      int(days),
				StockValue:    round(value, 2),
			})
		}

		if c.isOverstock(p.CurrentStock, avg, days) {
			excess := p.CurrentStock - avg*c.policy.TargetCoverDays
			if excess <= 0 {
				continue
			}
			value := excess * p.UnitPrice
			overstockTotal += value
			overstock = append(overstock, domain.OverstockItem{
				ProductID:      p.ID,
				Name:           p.Name,
				SKU:            p.SKU,
				CurrentStock:   p.CurrentStock,
				DaysOfStock:    int(days),
				ExcessQty:      int(excess),
				OverstockValue: round(value, 2),
			})
		}
	}

	prices := make(map[int64]float64, len(in.Products))
	for _, p := range in.Products {
		prices[p.ID] = p.UnitPrice
	}

	return domain.Dashboard{
		RiskOfStockout:   FormatCurrency(riskTotal, symbol),
		OverstockValue:   FormatCurrency(overstockTotal, symbol),
		RiskTotal:        round(riskTotal, 2),
		OverstockTotal:   round(overstockTotal, 2),
		ForecastAccuracy: AccuracyBucket(in.TotalRecords),
		AccuracyKind:     AccuracyKindHeuristic,
		UrgentReorders:   len(critical),
		SalesHistory:     salesHistory(in.SalesHistory),
		ForecastData:     forecastSeries(in.Forecast),
		Recommendations:  c.Recommendations(critical, prices),
		Overstock:        overstock,
		Stats: domain.DashboardStats{
			TotalProducts:     len(in.Products),
			TotalSalesRecords: in.TotalRecords,
			CriticalCount:     len(critical),
			OverstockCount:    len(overstock),
			DateRange:         displayRange(in.DateRange),
		},
		Profile: c.policy.Profile,
	}
}

// Recommendations builds purchase suggestions for stockout-risk items,
// most urgent first, capped at the policy's TopN.
func (c *Calculator) Recommendations(critical []domain.StockoutItem, prices map[int64]float64) []domain.Recommendation {
	out := make([]domain.Recommendation, 0, len(critical))
	for _, item := range critical {
		qty := int(math.Floor(item.AvgDailySales * c.policy.ReorderMultiplierDays))
		priority := domain.PriorityHigh
		if item.DaysLeft < c.policy.UrgentDays {
			priority = domain.PriorityUrgent
		}
		out = append(out, domain.Recommendation{
			ProductID:     item.ProductID,
			Name:          item.Name,
			SKU:           item.SKU,
			CurrentStock:  item.CurrentStock,
			AvgDailySales: round(item.AvgDailySales, 1),
			DaysLeft:      item.DaysLeft,
			SuggestedQty:  qty,
			Cost:          round(float64(qty)*prices[item.ProductID], 2),
			Priority:      priority,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].DaysLeft < out[j].DaysLeft })

	if c.policy.TopN > 0 && len(out) > c.policy.TopN {
		out = out[:c.policy.TopN]
	}
	return out
}

// ProductDetail computes the per-product analytics view.
func (c *Calculator) ProductDetail(in DetailInput) domain.ProductDetail {
	p := in.Product
	avg := in.Average
	today := c.Today()

	history := make([]domain.HistoryPoint, 0, len(in.History))
	quantities := make([]float64, 0, len(in.History))
	for _, s := range in.History {
		history = append(history, domain.HistoryPoint{Date: s.Date.Format(DisplayDateLayout), Quantity: s.Quantity})
		quantities = append(quantities, s.Quantity)
	}

	bands := make([]domain.ForecastBand, 0, len(in.Forecast))
	for _, f := range in.Forecast {
		bands = append(bands, domain.ForecastBand{
			Date:      f.Date.Format(DisplayDateLayout),
			Yhat:      round(f.PredictedQuantity, 1),
			YhatLower: round(f.LowerBound, 1),
			YhatUpper: round(f.UpperBound, 1),
		})
	}

	info := c.StockInfo(p.CurrentStock, avg, today)

	factors := []string{}
	if trend, ok := TrendFactor(quantities); ok {
		factors = append(factors, trend)
	}
	days := DaysUntilStockout(p.CurrentStock, avg)
	if c.isCritical(p.CurrentStock, days) {
		factors = append(factors, "⚠️ Критический уровень запасов")
	}
	if c.isOverstock(p.CurrentStock, avg, days) {
		factors = append(factors, "📦 Избыточные запасы")
	}

	return domain.ProductDetail{
		ProductID:     p.ID,
		ProductName:   p.Name,
		SKU:           p.SKU,
		CurrentStock:  p.CurrentStock,
		UnitPrice:     p.UnitPrice,
		AvgDailySales: round(avg, 1),
		History:       history,
		Forecast:      bands,
		Factors:       factors,
		Accuracy:      detailAccuracy,
		AccuracyKind:  AccuracyKindHeuristic,
		StockInfo:     info,
		Statistics:    statistics(quantities, avg),
	}
}

// StockInfo derives replenishment metadata for one product as of today.
func (c *Calculator) StockInfo(stock, avg float64, today time.Time) domain.StockInfo {
	info := domain.StockInfo{
		SafetyStockDays: c.policy.SafetyStockDays,
		LeadTimeDays:    c.policy.LeadTimeDays,
		ReorderPoint:    int(avg * (c.policy.LeadTimeDays + c.policy.SafetyStockDays)),
		SuggestedOrder:  SuggestedOrder(stock, avg, c.policy.TargetCoverDays),
	}

	if avg <= 0 {
		info.DaysLeft = NoDemandDays
		info.WillEndAt = noSalesEndLabel
		return info
	}

	info.DaysLeft = int(stock / avg)
	info.WillEndAt = today.AddDate(0, 0, info.DaysLeft).Format(DisplayDateLayout)
	return info
}

// ExportRows lists every product with the purchase that lifts it to the target
// cover. Stockout-risk products carry a priority.
func (c *Calculator) ExportRows(products []domain.Product, averages map[int64]float64) []domain.ExportRow {
	out := make([]domain.ExportRow, 0, len(products))
	for _, p := range products {
		avg := averages[p.ID]
		days := DaysUntilStockout(p.CurrentStock, avg)
		qty := SuggestedOrder(p.CurrentStock, avg, c.policy.TargetCoverDays)

		row := domain.ExportRow{
			SKU:            p.SKU,
			Name:           p.Name,
			CurrentStock:   p.CurrentStock,
			UnitPrice:      p.UnitPrice,
			StockValue:     round(p.CurrentStock*p.UnitPrice, 2),
			AvgDailySales:  round(avg, 1),
			DaysLeft:       int(days),
			SuggestedQty:   qty,
			PurchaseAmount: round(float64(qty)*p.UnitPrice, 2),
		}
		if c.isCritical(p.CurrentStock, days) {
			row.Priority = domain.PriorityHigh
			if row.DaysLeft < c.policy.UrgentDays {
				row.Priority = domain.PriorityUrgent
			}
		}
		out = append(out, row)
	}
	return out
}

// SuggestedOrder is the quantity that lifts stock to targetCover days of demand.
func SuggestedOrder(stock, avg, targetCover float64) int {
	return int(math.Max(0, math.Floor(avg*targetCover-stock)))
}

// TrendFactor compares the last week of recorded days with the week before.
// It reports nothing until more than a week is recorded.
func TrendFactor(quantities []float64) (string, bool) {
	n := len(quantities)
	if n <= trendWindow {
		return "", false
	}

	recent := stat.Mean(quantities[n-trendWindow:], nil)
	older := recent
	if n > 2*trendWindow {
		older = stat.Mean(quantities[n-2*trendWindow:n-trendWindow], nil)
	}

	var change float64
	if older > 0 {
		change = (recent - older) / older * 100
	}

	switch {
	case change > trendThreshold:
		return fmt.Sprintf("↑ Растущий тренд (+%d%%)", int(change)), true
	case change < -trendThreshold:
		return fmt.Sprintf("↓ Падающий тренд (%d%%)", int(change)), true
	default:
		return "→ Стабильный спрос", true
	}
}

// AccuracyBucket is a placeholder figure keyed on record count, not a measurement.
func AccuracyBucket(records int) string {
	switch {
	case records > 100:
		return "94%"
	case records > 50:
		return "88%"
	default:
		return "82%"
	}
}

func statistics(quantities []float64, avg float64) domain.ProductStatistics {
	stats := domain.ProductStatistics{
		AvgDaily:     round(avg, 1),
		RecordsCount: len(quantities),
	}
	if len(quantities) == 0 {
		return stats
	}
	stats.TotalSold = floats.Sum(quantities)
	stats.MaxDaily = floats.Max(quantities)
	stats.MinDaily = floats.Min(quantities)
	return stats
}

func salesHistory(totals []domain.DailyTotal) []domain.SalesHistoryPoint {
	out := make([]domain.SalesHistoryPoint, 0, len(totals))
	for _, t := range totals {
		out = append(out, domain.SalesHistoryPoint{Date: t.Date.Format(DisplayDateLayout), Actual: t.Quantity})
	}
	return out
}

func forecastSeries(totals []domain.DailyTotal) []domain.ForecastSeriesPoint {
	out := make([]domain.ForecastSeriesPoint, 0, len(totals))
	for _, t := range totals {
		out = append(out, domain.ForecastSeriesPoint{Date: t.Date.Format(DisplayDateLayout), Forecast: round(t.Quantity, 1)})
	}
	return out
}

func displayRange(r domain.DateRange) domain.DateRange {
	out := domain.DateRange{Start: notAvailable, End: notAvailable}
	if d, err := time.Parse(domain.DateLayout, r.Start); err == nil {
		out.Start = d.Format(DisplayDateLayout)
	}
	if d, err := time.Parse(domain.DateLayout, r.End); err == nil {
		out.End = d.Format(DisplayDateLayout)
	}
	return out
}
