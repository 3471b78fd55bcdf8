package forecast

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/metrics"
	"github.com/andresuchdata/stockcast/backend-go/pkg/logger"
)

// ErrFitTimeout marks a fit abandoned after Config.FitTimeout.
var ErrFitTimeout = errors.New("forecast fit timed out")

// Store is the persistence the engine needs.
type Store interface {
	LoadSeries(ctx context.Context, productID int64) ([]domain.SalesPoint, error)
	ReplaceForecast(ctx context.Context, productID int64, points []domain.ForecastPoint) error
}

type Config struct {
	Model      ModelConfig
	MinPoints  int
	Workers    int
	FitTimeout time.Duration
}

// ConfigFrom maps the application config onto engine settings.
func ConfigFrom(cfg config.ForecastConfig) Config {
	return Config{
		Model: ModelConfig{
			Horizon:           cfg.HorizonDays,
			WeeklyOrder:       cfg.WeeklyOrder,
			YearlyOrder:       cfg.YearlyOrder,
			YearlyMinSpanDays: cfg.YearlyMinSpanDays,
			Regularization:    cfg.Regularization,
			IntervalWidth:     cfg.IntervalWidth,
		},
		MinPoints:  cfg.MinPoints,
		Workers:    cfg.Workers,
		FitTimeout: cfg.FitTimeout(),
	}
}

type fitFunc func([]domain.SalesPoint, ModelConfig) (*Model, error)

// Engine fits and stores per-product forecasts on a bounded worker pool.
type Engine struct {
	store   Store
	cfg     Config
	metrics *metrics.Metrics
	fit     fitFunc
}

func NewEngine(store Store, cfg Config, m *metrics.Metrics) *Engine {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MinPoints <= 0 {
		cfg.MinPoints = 30
	}
	return &Engine{store: store, cfg: cfg, metrics: m, fit: Fit}
}

type outcome int

const (
	outcomeForecasted outcome = iota
	outcomeSkipped
	outcomeFailed
)

type result struct {
	productID int64
	outcome   outcome
	err       error
}

// Run forecasts every product in productIDs. A failing product is reported in
// the result and never stops the others.
func (e *Engine) Run(ctx context.Context, productIDs []int64) domain.ForecastReport {
	ids := uniqueIDs(productIDs)
	report := domain.ForecastReport{
		Forecasted: []int64{},
		Skipped:    []int64{},
		Failed:     map[int64]string{},
	}
	if len(ids) == 0 {
		return report
	}

	workerCount := e.cfg.Workers
	if workerCount > len(ids) {
		workerCount = len(ids)
	}

	jobs := make(chan int64, len(ids))
	results := make(chan result, len(ids))
	var wg sync.WaitGroup

	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for id := range jobs {
				res := e.forecastOne(ctx, id)
				if res.err != nil {
					logger.Log.Warn().Err(res.err).Int("worker", workerID).Int64("product_id", id).Msg("forecast failed")
				}
				results <- res
			}
		}(i)
	}

enqueue:
	for _, id := range ids {
		select {
		case <-ctx.Done():
			break enqueue
		case jobs <- id:
		}
	}
	close(jobs)

	wg.Wait()
	close(results)

	done := make(map[int64]result, len(ids))
	for res := range results {
		done[res.productID] = res
	}

	for _, id := range ids {
		res, ok := done[id]
		if !ok {
			report.Failed[id] = fmt.Sprintf("not started: %v", ctx.Err())
			continue
		}
		switch res.outcome {
		case outcomeForecasted:
			report.Forecasted = append(report.Forecasted, id)
		case outcomeSkipped:
			report.Skipped = append(report.Skipped, id)
		default:
			report.Failed[id] = res.err.Error()
		}
	}

	logger.Log.Info().
		Int("forecasted", len(report.Forecasted)).
		Int("skipped", len(report.Skipped)).
		Int("failed", len(report.Failed)).
		Msg("forecast run completed")

	return report
}

func (e *Engine) forecastOne(ctx context.Context, productID int64) result {
	res := result{productID: productID}

	series, err := e.store.LoadSeries(ctx, productID)
	if err != nil {
		res.outcome, res.err = outcomeFailed, fmt.Errorf("load series: %w", err)
		return res
	}
	if len(series) < e.cfg.MinPoints {
		e.metrics.IncSkipped()
		res.outcome = outcomeSkipped
		return res
	}

	start := time.Now()
	model, err := e.fitWithTimeout(ctx, series)
	if err != nil {
		label := metrics.OutcomeFailed
		if errors.Is(err, ErrFitTimeout) {
			label = metrics.OutcomeTimeout
		}
		e.metrics.ObserveFit(label, time.Since(start))
		res.outcome, res.err = outcomeFailed, err
		return res
	}

	predictions := model.Forecast()
	points := make([]domain.ForecastPoint, 0, len(predictions))
	for _, p := range predictions {
		points = append(points, domain.ForecastPoint{
			ProductID:         productID,
			Date:              p.Date,
			PredictedQuantity: p.Yhat,
			LowerBound:        p.Lower,
			UpperBound:        p.Upper,
		})
	}

	if err := e.store.ReplaceForecast(ctx, productID, points); err != nil {
		e.metrics.ObserveFit(metrics.OutcomeFailed, time.Since(start))
		res.outcome, res.err = outcomeFailed, fmt.Errorf("store forecast: %w", err)
		return res
	}

	e.metrics.ObserveFit(metrics.OutcomeForecasted, time.Since(start))
	logger.Log.Debug().
		Int64("product_id", productID).
		Int("points", len(series)).
		Dur("took", time.Since(start)).
		Msg("forecast stored")

	res.outcome = outcomeForecasted
	return res
}

// fitWithTimeout runs the CPU-bound fit off the worker goroutine so a slow fit
// can be abandoned. An abandoned fit never reaches the store.
func (e *Engine) fitWithTimeout(ctx context.Context, series []domain.SalesPoint) (*Model, error) {
	fitCtx := ctx
	if e.cfg.FitTimeout > 0 {
		var cancel context.CancelFunc
		fitCtx, cancel = context.WithTimeout(ctx, e.cfg.FitTimeout)
		defer cancel()
	}

	type fitResult struct {
		model *Model
		err   error
	}
	done := make(chan fitResult, 1)
	go func() {
		m, err := e.fit(series, e.cfg.Model)
		done <- fitResult{model: m, err: err}
	}()

	select {
	case <-fitCtx.Done():
		if errors.Is(fitCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s", ErrFitTimeout, e.cfg.FitTimeout)
		}
		return nil, fitCtx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("fit: %w", r.err)
		}
		return r.model, nil
	}
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
