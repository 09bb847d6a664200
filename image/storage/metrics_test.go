package storage

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()

	metrics, err := NewMetrics(registry)
	require.NoError(t, err)

	metrics.cacheHit()
	metrics.cacheHit()
	metrics.cacheMiss()
	metrics.allocationRetry(retryReasonConflict)

	require.InDelta(t, 2, testutil.ToFloat64(metrics.cacheHits), 0)
	require.InDelta(t, 1, testutil.ToFloat64(metrics.cacheMisses), 0)
	require.InDelta(t, 1, testutil.ToFloat64(metrics.allocationRetries.WithLabelValues(retryReasonConflict)), 0)
	require.InDelta(t, 0, testutil.ToFloat64(metrics.allocationRetries.WithLabelValues(retryReasonLocked)), 0)

	_, err = NewMetrics(registry)
	require.Error(t, err)

	unregistered, err := NewMetrics(nil)
	require.NoError(t, err)
	unregistered.imageRemoved()
	require.InDelta(t, 1, testutil.ToFloat64(unregistered.removed), 0)
}

func TestNilMetricsRecordNothing(t *testing.T) {
	t.Parallel()

	var metrics *Metrics

	require.NotPanics(t, func() {
		metrics.cacheHit()
		metrics.cacheMiss()
		metrics.derivativeGenerated()
		metrics.allocationRetry(retryReasonLocked)
		metrics.imageRemoved()
	})
}
