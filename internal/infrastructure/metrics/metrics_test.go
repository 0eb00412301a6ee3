package metrics_test

import (
	"testing"

	"github.com/66gu1/thesisportal/internal/infrastructure/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	t.Parallel()

	m := metrics.New(prometheus.NewRegistry())
	m.RefreshFinished(metrics.OutcomeSuccess)
	m.RefreshFinished(metrics.OutcomeSuccess)
	m.RefreshFinished(metrics.OutcomeExpired)
	m.RequestReplayed()

	require.InDelta(t, 2, testutil.ToFloat64(m.Refreshes(metrics.OutcomeSuccess)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.Refreshes(metrics.OutcomeExpired)), 0)
	require.InDelta(t, 0, testutil.ToFloat64(m.Refreshes(metrics.OutcomeTransportError)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.Replays()), 0)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var m *metrics.Metrics
	require.NotPanics(t, func() {
		m.RefreshFinished(metrics.OutcomeSuccess)
		m.RequestReplayed()
		m.LoginFinished(metrics.OutcomeRejected)
		m.GuardDecided("authorized")
	})
}
