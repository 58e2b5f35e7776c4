package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	assert.NoError(t, m.Track("reconcile").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("reconcile").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("reconcile", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("reconcile", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("reconcile")))
}

func TestAddAlertsIgnoresEmptyCounts(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.AddAlerts(AlertOverdueInvoice, 3)
	m.AddAlerts(AlertOverdueInvoice, 0)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.alerts.WithLabelValues(AlertOverdueInvoice)))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.AddAlerts(AlertFollowUpDue, 1)
	assert.NoError(t, m.Track("noop").End(nil))
}
