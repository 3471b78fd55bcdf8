package forecast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/metrics"
)

type memoryStore struct {
	mu        sync.Mutex
	series    map[int64][]domain.SalesPoint
	forecasts map[int64][]domain.ForecastPoint
	writes    int
	loadErr   map[int64]error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		series:    map[int64][]domain.SalesPoint{},
		forecasts: map[int64][]domain.ForecastPoint{},
		loadErr:   map[int64]error{},
	}
}

func (s *memoryStore) LoadSeries(_ context.Context, id int64) ([]domain.SalesPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadErr[id]; err != nil {
		return nil, err
	}
	return s.series[id], nil
}

func (s *memoryStore) ReplaceForecast(_ context.Context, id int64, points []domain.ForecastPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	s.forecasts[id] = append([]domain.ForecastPoint(nil), points...)
	return nil
}

func testConfig() Config {
	return Config{Model: DefaultModelConfig(), MinPoints: 30, Workers: 3, FitTimeout: 5 * time.Second}
}

func TestEngineRunIsIdempotent(t *testing.T) {
	store := newMemoryStore()
	store.series[1] = makeSeries(45, func(i int, _ time.Time) float64 { return float64(i % 4) })
	engine := NewEngine(store, testConfig(), nil)

	first := engine.Run(context.Background(), []int64{1})
	require.Equal(t, []int64{1}, first.Forecasted)
	stored := store.forecasts[1]
	require.Len(t, stored, 30)

	second := engine.Run(context.Background(), []int64{1, 1})
	require.Equal(t, []int64{1}, second.Forecasted)
	assert.Equal(t, stored, store.forecasts[1])
	assert.Equal(t, 2, store.writes)

	lastObserved := seriesStart.AddDate(0, 0, 44)
	for _, p := range store.forecasts[1] {
		assert.True(t, p.Date.After(lastObserved))
		assert.GreaterOrEqual(t, p.PredictedQuantity, 0.0)
	}
}

func TestEngineSkipsShortHistoryAndReportsFailures(t *testing.T) {
	store := newMemoryStore()
	store.series[1] = makeSeries(29, func(int, time.Time) float64 { return 1 })
	store.series[2] = makeSeries(30, func(int, time.Time) float64 { return 1 })
	store.loadErr[3] = errors.New("connection reset")

	reg := prometheus.NewRegistry()
	engine := NewEngine(store, testConfig(), metrics.New(reg))

	report := engine.Run(context.Background(), []int64{1, 2, 3})

	assert.Equal(t, []int64{2}, report.Forecasted)
	assert.Equal(t, []int64{1}, report.Skipped)
	require.Contains(t, report.Failed, int64(3))
	assert.Contains(t, report.Failed[3], "connection reset")
	assert.NotContains(t, store.forecasts, int64(1))
}

func TestEngineTimeoutWritesNothing(t *testing.T) {
	store := newMemoryStore()
	store.series[1] = makeSeries(40, func(int, time.Time) float64 { return 1 })
	store.series[2] = makeSeries(40, func(int, time.Time) float64 { return 1 })

	cfg := testConfig()
	cfg.FitTimeout = 20 * time.Millisecond
	engine := NewEngine(store, cfg, nil)

	release := make(chan struct{})
	defer close(release)
	engine.fit = func(series []domain.SalesPoint, mc ModelConfig) (*Model, error) {
		<-release
		return Fit(series, mc)
	}

	report := engine.Run(context.Background(), []int64{1, 2})

	assert.Empty(t, report.Forecasted)
	require.Len(t, report.Failed, 2)
	assert.Contains(t, report.Failed[1], ErrFitTimeout.Error())
	assert.Zero(t, store.writes)
}

func TestEngineFitFailureIsPartial(t *testing.T) {
	store := newMemoryStore()
	store.series[1] = makeSeries(40, func(int, time.Time) float64 { return 1 })
	store.series[2] = makeSeries(40, func(int, time.Time) float64 { return 2 })

	engine := NewEngine(store, testConfig(), nil)
	engine.fit = func(series []domain.SalesPoint, mc ModelConfig) (*Model, error) {
		if series[0].Quantity == 1 {
			return nil, ErrDegenerate
		}
		return Fit(series, mc)
	}

	report := engine.Run(context.Background(), []int64{1, 2})
	assert.Equal(t, []int64{2}, report.Forecasted)
	assert.Contains(t, report.Failed[1], "degenerate")
	assert.Len(t, store.forecasts[2], 30)
}

func TestEngineCancelledContext(t *testing.T) {
	store := newMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := NewEngine(store, testConfig(), nil)
	report := engine.Run(ctx, []int64{1, 2, 3})

	assert.Empty(t, report.Forecasted)
	assert.Zero(t, store.writes)
}
