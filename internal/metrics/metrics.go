package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeForecasted = "forecasted"
	OutcomeSkipped    = "skipped"
	OutcomeFailed     = "failed"
	OutcomeTimeout    = "timeout"

	BatchAccepted = "accepted"
	BatchRejected = "rejected"
	BatchFailed   = "failed"
)

// Metrics records ingestion and forecast activity. A nil *Metrics is a no-op.
type Metrics struct {
	fitDuration      *prometheus.HistogramVec
	forecastOutcomes *prometheus.CounterVec
	ingestBatches    *prometheus.CounterVec
	ingestRows       *prometheus.CounterVec
}

// New registers the collectors on the provided registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	fitDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stockcast_forecast_fit_duration_seconds",
		Help:    "Duration of per-product forecast fits in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	forecastOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stockcast_forecast_products_total",
		Help: "Products processed by the forecast engine, by outcome.",
	}, []string{"outcome"})
	ingestBatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stockcast_ingest_batches_total",
		Help: "Uploaded sales batches, by status.",
	}, []string{"status"})
	ingestRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stockcast_ingest_rows_total",
		Help: "Sales rows seen by ingestion, by kind.",
	}, []string{"kind"})
	reg.MustRegister(fitDuration, forecastOutcomes, ingestBatches, ingestRows)
	return &Metrics{
		fitDuration:      fitDuration,
		forecastOutcomes: forecastOutcomes,
		ingestBatches:    ingestBatches,
		ingestRows:       ingestRows,
	}
}

// ObserveFit records one product fit and its outcome.
func (m *Metrics) ObserveFit(outcome string, d time.Duration) {
	if m == nil || m.fitDuration == nil {
		return
	}
	m.fitDuration.WithLabelValues(outcome).Observe(d.Seconds())
	m.forecastOutcomes.WithLabelValues(outcome).Inc()
}

// IncSkipped counts a product skipped for lack of history.
func (m *Metrics) IncSkipped() {
	if m == nil || m.forecastOutcomes == nil {
		return
	}
	m.forecastOutcomes.WithLabelValues(OutcomeSkipped).Inc()
}

// IncBatch counts an upload by final status.
func (m *Metrics) IncBatch(status string) {
	if m == nil || m.ingestBatches == nil {
		return
	}
	m.ingestBatches.WithLabelValues(status).Inc()
}

// AddRows adds n rows of the given kind (loaded, updated, skipped).
func (m *Metrics) AddRows(kind string, n int) {
	if m == nil || m.ingestRows == nil || n <= 0 {
		return
	}
	m.ingestRows.WithLabelValues(kind).Add(float64(n))
}
