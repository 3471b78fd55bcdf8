package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRecordsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveFit(OutcomeForecasted, 150*time.Millisecond)
	m.ObserveFit(OutcomeForecasted, 50*time.Millisecond)
	m.ObserveFit(OutcomeTimeout, time.Second)
	m.IncSkipped()
	m.IncBatch(BatchAccepted)
	m.AddRows("loaded", 12)
	m.AddRows("loaded", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.forecastOutcomes.WithLabelValues(OutcomeForecasted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.forecastOutcomes.WithLabelValues(OutcomeTimeout)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.forecastOutcomes.WithLabelValues(OutcomeSkipped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ingestBatches.WithLabelValues(BatchAccepted)))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.ingestRows.WithLabelValues("loaded")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.fitDuration))
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveFit(OutcomeFailed, time.Second)
		m.IncSkipped()
		m.IncBatch(BatchFailed)
		m.AddRows("skipped", 3)
	})

	empty := New(nil)
	assert.NotPanics(t, func() { empty.IncBatch(BatchRejected) })
}
