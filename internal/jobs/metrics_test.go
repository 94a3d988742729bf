package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("low_stock").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("low_stock").End(boom), boom)

	require.InDelta(t, 1, testutil.ToFloat64(m.runs.WithLabelValues("low_stock", "success")), 0.0001)
	require.InDelta(t, 1, testutil.ToFloat64(m.runs.WithLabelValues("low_stock", "failure")), 0.0001)
	require.InDelta(t, 1, testutil.ToFloat64(m.failures.WithLabelValues("low_stock")), 0.0001)
}

func TestCountersIgnoreNilAndEmpty(t *testing.T) {
	var nilMetrics *Metrics
	nilMetrics.AddLowStockAlert("Pan")
	nilMetrics.AddPurged(3)
	require.NoError(t, nilMetrics.Track("x").End(nil))

	m := NewMetrics(prometheus.NewRegistry())
	m.AddPurged(0)
	m.AddPurged(4)
	m.AddLowStockAlert("Pan")
	require.InDelta(t, 4, testutil.ToFloat64(m.purged), 0.0001)
	require.InDelta(t, 1, testutil.ToFloat64(m.alerts.WithLabelValues("Pan")), 0.0001)
}
