package forecast

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

const (
	weekPeriod = 7.0
	yearPeriod = 365.25
	day        = 24 * time.Hour
)

// ErrDegenerate is returned when a series cannot support a fit.
var ErrDegenerate = errors.New("degenerate series")

// ModelConfig shapes the additive trend + seasonality regression.
type ModelConfig struct {
	Horizon           int
	WeeklyOrder       int
	YearlyOrder       int
	YearlyMinSpanDays int
	Regularization    float64
	IntervalWidth     float64
}

func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Horizon:           30,
		WeeklyOrder:       3,
		YearlyOrder:       10,
		YearlyMinSpanDays: 365,
		Regularization:    0.01,
		IntervalWidth:     0.95,
	}
}

// Model is a fitted y(t) = intercept + trend·t + weekly + yearly Fourier terms.
type Model struct {
	cfg    ModelConfig
	coef   *mat.VecDense
	start  time.Time
	last   time.Time
	span   float64
	yearly bool
	sigma  float64
	z      float64
}

// Prediction is one forecast day with its interval.
type Prediction struct {
	Date  time.Time
	Yhat  float64
	Lower float64
	Upper float64
}

// Fit estimates the model by ridge-regularised least squares. The intercept is
// not penalised. The fit has no random state, so equal input gives equal output.
func Fit(series []domain.SalesPoint, cfg ModelConfig) (*Model, error) {
	points := make([]domain.SalesPoint, len(series))
	copy(points, series)
	sort.SliceStable(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	if len(points) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 points, got %d", ErrDegenerate, len(points))
	}

	m := &Model{
		cfg:   cfg,
		start: truncateDay(points[0].Date),
		last:  truncateDay(points[len(points)-1].Date),
	}
	spanDays := m.last.Sub(m.start).Hours() / 24
	if spanDays <= 0 {
		return nil, fmt.Errorf("%w: all points fall on one day", ErrDegenerate)
	}
	m.span = spanDays
	m.yearly = cfg.YearlyOrder > 0 && spanDays >= float64(cfg.YearlyMinSpanDays)

	n, p := len(points), m.numFeatures()
	x := mat.NewDense(n, p, nil)
	y := mat.NewVecDense(n, nil)
	for i, pt := range points {
		if math.IsNaN(pt.Quantity) || math.IsInf(pt.Quantity, 0) {
			return nil, fmt.Errorf("%w: non-finite quantity on %s", ErrDegenerate, pt.Date.Format(domain.DateLayout))
		}
		x.SetRow(i, m.features(pt.Date))
		y.SetVec(i, pt.Quantity)
	}

	// (XᵀX + λD)β = Xᵀy with D = diag(0, 1, ..., 1)
	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	lambda := cfg.Regularization * float64(n)
	for j := 1; j < p; j++ {
		xtx.Set(j, j, xtx.At(j, j)+lambda)
	}
	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	coef := mat.NewVecDense(p, nil)
	if err := coef.SolveVec(&xtx, &xty); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("%w: %v", ErrDegenerate, err)
		}
	}
	for j := 0; j < p; j++ {
		if v := coef.AtVec(j); math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: unstable coefficients", ErrDegenerate)
		}
	}
	m.coef = coef

	var fitted mat.VecDense
	fitted.MulVec(x, coef)
	residuals := make([]float64, n)
	for i := range residuals {
		residuals[i] = y.AtVec(i) - fitted.AtVec(i)
	}
	m.sigma = residualStdDev(residuals, p)

	width := cfg.IntervalWidth
	if width <= 0 || width >= 1 {
		width = 0.95
	}
	m.z = distuv.UnitNormal.Quantile(0.5 + width/2)

	return m, nil
}

// Forecast predicts the horizon days right after the last observed date.
// Point estimates and lower bounds are clamped at zero.
func (m *Model) Forecast() []Prediction {
	horizon := m.cfg.Horizon
	if horizon <= 0 {
		horizon = 30
	}

	out := make([]Prediction, 0, horizon)
	for h := 1; h <= horizon; h++ {
		date := m.last.AddDate(0, 0, h)
		raw := mat.Dot(mat.NewVecDense(m.numFeatures(), m.features(date)), m.coef)
		band := m.z * m.sigma
		out = append(out, Prediction{
			Date:  date,
			Yhat:  math.Max(0, raw),
			Lower: math.Max(0, raw-band),
			Upper: math.Max(0, raw+band),
		})
	}
	return out
}

// LastObserved is the final day of the training series.
func (m *Model) LastObserved() time.Time {
	return m.last
}

func (m *Model) numFeatures() int {
	p := 2 + 2*m.cfg.WeeklyOrder
	if m.yearly {
		p += 2 * m.cfg.YearlyOrder
	}
	return p
}

func (m *Model) features(date time.Time) []float64 {
	d := truncateDay(date)
	t := d.Sub(m.start).Hours() / 24
	// absolute day number keeps the weekly phase tied to the weekday
	abs := float64(d.Unix()) / day.Seconds()

	row := make([]float64, 0, m.numFeatures())
	row = append(row, 1, t/m.span)
	row = appendFourier(row, abs, weekPeriod, m.cfg.WeeklyOrder)
	if m.yearly {
		row = appendFourier(row, abs, yearPeriod, m.cfg.YearlyOrder)
	}
	return row
}

func appendFourier(row []float64, t, period float64, order int) []float64 {
	for k := 1; k <= order; k++ {
		angle := 2 * math.Pi * float64(k) * t / period
		row = append(row, math.Sin(angle), math.Cos(angle))
	}
	return row
}

func residualStdDev(residuals []float64, params int) float64 {
	n := len(residuals)
	if n == 0 {
		return 0
	}
	var sse float64
	for _, r := range residuals {
		sse += r * r
	}
	dof := n - params
	if dof <= 0 {
		dof = n
	}
	return math.Sqrt(sse / float64(dof))
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
