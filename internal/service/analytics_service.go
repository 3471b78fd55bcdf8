package service

import (
	"context"
	"fmt"

	"github.com/andresuchdata/stockcast/backend-go/internal/analytics"
	"github.com/andresuchdata/stockcast/backend-go/internal/cache"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/forecast"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository"
	"github.com/andresuchdata/stockcast/backend-go/pkg/logger"
)

// AnalyticsService serves the read side: dashboard, product detail, exports,
// and the few writes that invalidate it.
type AnalyticsService struct {
	products  repository.ProductRepository
	sales     repository.SalesRepository
	forecasts repository.ForecastRepository
	calc      *analytics.Calculator
	engine    *forecast.Engine
	cache     cache.AnalyticsCache
}

func NewAnalyticsService(
	products repository.ProductRepository,
	sales repository.SalesRepository,
	forecasts repository.ForecastRepository,
	calc *analytics.Calculator,
	engine *forecast.Engine,
	cacheImpl cache.AnalyticsCache,
) *AnalyticsService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopAnalyticsCache()
	}
	return &AnalyticsService{
		products:  products,
		sales:     sales,
		forecasts: forecasts,
		calc:      calc,
		engine:    engine,
		cache:     cacheImpl,
	}
}

func (s *AnalyticsService) Dashboard(ctx context.Context, userID int64) (*domain.Dashboard, error) {
	if dashboard, ok, err := s.cache.GetDashboard(ctx, userID); err == nil && ok {
		return dashboard, nil
	} else if err != nil {
		logger.Log.Warn().Err(err).Msg("analytics: cache get dashboard failed")
	}

	products, err := s.products.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	in := analytics.DashboardInput{Products: products}
	if len(products) > 0 {
		if err := s.loadDashboardInput(ctx, userID, &in); err != nil {
			return nil, err
		}
	}

	dashboard := s.calc.Dashboard(in)

	if err := s.cache.SetDashboard(ctx, userID, &dashboard); err != nil {
		logger.Log.Warn().Err(err).Msg("analytics: cache set dashboard failed")
	}
	return &dashboard, nil
}

func (s *AnalyticsService) loadDashboardInput(ctx context.Context, userID int64, in *analytics.DashboardInput) error {
	today := s.calc.Today()
	policy := s.calc.Policy()

	var err error
	if in.Averages, err = s.sales.AverageQuantities(ctx, userID, policy.DemandFrom(today)); err != nil {
		return fmt.Errorf("average demand: %w", err)
	}
	if in.SalesHistory, err = s.sales.DailyTotals(ctx, userID, policy.HistoryFrom(today)); err != nil {
		return fmt.Errorf("sales history: %w", err)
	}
	if in.Forecast, err = s.forecasts.DailyTotals(ctx, userID); err != nil {
		return fmt.Errorf("forecast totals: %w", err)
	}
	if in.TotalRecords, err = s.sales.CountSales(ctx, userID); err != nil {
		return fmt.Errorf("count sales: %w", err)
	}
	if in.DateRange, err = s.sales.DateRange(ctx, userID); err != nil {
		return fmt.Errorf("date range: %w", err)
	}
	return nil
}

// ProductDetail returns domain.ErrNotFound when the product is not the user's.
func (s *AnalyticsService) ProductDetail(ctx context.Context, userID, productID int64) (*domain.ProductDetail, error) {
	if detail, ok, err := s.cache.GetProductDetail(ctx, userID, productID); err == nil && ok {
		return detail, nil
	} else if err != nil {
		logger.Log.Warn().Err(err).Msg("analytics: cache get product detail failed")
	}

	product, err := s.products.GetByID(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	today := s.calc.Today()
	policy := s.calc.Policy()

	averages, err := s.sales.AverageQuantities(ctx, userID, policy.DemandFrom(today))
	if err != nil {
		return nil, fmt.Errorf("average demand: %w", err)
	}
	history, err := s.sales.ProductSales(ctx, productID, policy.HistoryFrom(today))
	if err != nil {
		return nil, fmt.Errorf("product sales: %w", err)
	}
	points, err := s.forecasts.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("product forecast: %w", err)
	}

	detail := s.calc.ProductDetail(analytics.DetailInput{
		Product:  *product,
		Average:  averages[productID],
		History:  history,
		Forecast: points,
	})

	if err := s.cache.SetProductDetail(ctx, userID, productID, &detail); err != nil {
		logger.Log.Warn().Err(err).Msg("analytics: cache set product detail failed")
	}
	return &detail, nil
}

func (s *AnalyticsService) ListProducts(ctx context.Context, userID int64) ([]domain.Product, error) {
	return s.products.ListByUser(ctx, userID)
}

// UpdateStock sets the externally counted stock of a product.
func (s *AnalyticsService) UpdateStock(ctx context.Context, userID, productID int64, stock float64) (*domain.Product, error) {
	if err := s.products.UpdateStock(ctx, userID, productID, stock); err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return s.products.GetByID(ctx, userID, productID)
}

// RunForecasts refits every product of the user.
func (s *AnalyticsService) RunForecasts(ctx context.Context, userID int64) (domain.ForecastReport, error) {
	products, err := s.products.ListByUser(ctx, userID)
	if err != nil {
		return domain.ForecastReport{}, fmt.Errorf("list products: %w", err)
	}

	ids := make([]int64, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}

	report := s.engine.Run(ctx, ids)
	s.invalidate(ctx, userID)
	return report, nil
}

// ExportRows returns one purchase line per product of the user.
func (s *AnalyticsService) ExportRows(ctx context.Context, userID int64) ([]domain.ExportRow, error) {
	products, err := s.products.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("%w: no products to export", domain.ErrNotFound)
	}

	averages, err := s.sales.AverageQuantities(ctx, userID, s.calc.Policy().DemandFrom(s.calc.Today()))
	if err != nil {
		return nil, fmt.Errorf("average demand: %w", err)
	}
	return s.calc.ExportRows(products, averages), nil
}

func (s *AnalyticsService) invalidate(ctx context.Context, userID int64) {
	if err := s.cache.InvalidateUser(ctx, userID); err != nil {
		logger.Log.Warn().Err(err).Int64("user_id", userID).Msg("analytics: cache invalidation failed")
	}
}
