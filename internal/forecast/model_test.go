package forecast

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

var seriesStart = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC) // a Monday

func makeSeries(days int, qty func(i int, d time.Time) float64) []domain.SalesPoint {
	out := make([]domain.SalesPoint, 0, days)
	for i := 0; i < days; i++ {
		d := seriesStart.AddDate(0, 0, i)
		out = append(out, domain.SalesPoint{Date: d, Quantity: qty(i, d)})
	}
	return out
}

func TestFitConstantSeries(t *testing.T) {
	series := makeSeries(60, func(int, time.Time) float64 { return 5 })

	m, err := Fit(series, DefaultModelConfig())
	require.NoError(t, err)

	preds := m.Forecast()
	require.Len(t, preds, 30)
	assert.Equal(t, seriesStart.AddDate(0, 0, 60), preds[0].Date)
	assert.Equal(t, seriesStart.AddDate(0, 0, 89), preds[29].Date)
	for _, p := range preds {
		assert.InDelta(t, 5.0, p.Yhat, 0.05)
		assert.LessOrEqual(t, p.Lower, p.Yhat)
		assert.GreaterOrEqual(t, p.Upper, p.Yhat)
	}
}

func TestFitWeeklyPattern(t *testing.T) {
	series := makeSeries(8*7, func(_ int, d time.Time) float64 {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			return 10
		}
		return 2
	})

	m, err := Fit(series, DefaultModelConfig())
	require.NoError(t, err)

	for _, p := range m.Forecast() {
		want := 2.0
		if p.Date.Weekday() == time.Saturday || p.Date.Weekday() == time.Sunday {
			want = 10
		}
		assert.InDelta(t, want, p.Yhat, 0.5, "day %s", p.Date.Format(domain.DateLayout))
	}
}

func TestFitNeverNegative(t *testing.T) {
	cases := map[string][]domain.SalesPoint{
		"all zero": makeSeries(45, func(int, time.Time) float64 { return 0 }),
		"falling":  makeSeries(45, func(i int, _ time.Time) float64 { return float64(45 - i) }),
		"spiky": makeSeries(45, func(i int, _ time.Time) float64 {
			if i%9 == 0 {
				return 40
			}
			return 0
		}),
	}

	for name, series := range cases {
		m, err := Fit(series, DefaultModelConfig())
		require.NoError(t, err, name)
		for _, p := range m.Forecast() {
			assert.GreaterOrEqual(t, p.Yhat, 0.0, name)
			assert.GreaterOrEqual(t, p.Lower, 0.0, name)
			assert.GreaterOrEqual(t, p.Upper, p.Yhat, name)
		}
	}
}

func TestFitIsDeterministic(t *testing.T) {
	series := makeSeries(400, func(i int, d time.Time) float64 {
		return float64(i%13) + float64(d.Weekday())
	})

	a, err := Fit(series, DefaultModelConfig())
	require.NoError(t, err)
	b, err := Fit(series, DefaultModelConfig())
	require.NoError(t, err)

	assert.True(t, a.yearly)
	assert.Equal(t, a.Forecast(), b.Forecast())
}

func TestFitYearlyTermsNeedLongHistory(t *testing.T) {
	m, err := Fit(makeSeries(90, func(int, time.Time) float64 { return 1 }), DefaultModelConfig())
	require.NoError(t, err)
	assert.False(t, m.yearly)
	assert.Equal(t, 8, m.numFeatures())
}

func TestFitIgnoresInputOrder(t *testing.T) {
	series := makeSeries(40, func(i int, _ time.Time) float64 { return float64(i % 5) })
	reversed := make([]domain.SalesPoint, len(series))
	for i, p := range series {
		reversed[len(series)-1-i] = p
	}

	a, err := Fit(series, DefaultModelConfig())
	require.NoError(t, err)
	b, err := Fit(reversed, DefaultModelConfig())
	require.NoError(t, err)

	assert.Equal(t, a.LastObserved(), b.LastObserved())
	for i, p := range a.Forecast() {
		assert.InDelta(t, p.Yhat, b.Forecast()[i].Yhat, 1e-9)
	}
}

func TestFitDegenerate(t *testing.T) {
	_, err := Fit(nil, DefaultModelConfig())
	assert.True(t, errors.Is(err, ErrDegenerate))

	sameDay := []domain.SalesPoint{{Date: seriesStart, Quantity: 1}, {Date: seriesStart, Quantity: 2}}
	_, err = Fit(sameDay, DefaultModelConfig())
	assert.True(t, errors.Is(err, ErrDegenerate))
}
