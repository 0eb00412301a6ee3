package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess        = "success"
	OutcomeExpired        = "expired"
	OutcomeTransportError = "transport_error"
	OutcomeRejected       = "rejected"
)

// Metrics holds the portal collectors. A nil *Metrics records nothing.
type Metrics struct {
	refreshes *prometheus.CounterVec
	replays   prometheus.Counter
	logins    *prometheus.CounterVec
	decisions *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_session_refresh_total",
			Help: "Refresh endpoint calls by outcome.",
		}, []string{"outcome"}),
		replays: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "portal_session_replays_total",
			Help: "Authenticated requests replayed after a 401.",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_session_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_authz_guard_decisions_total",
			Help: "Page guard decisions by resulting state.",
		}, []string{"state"}),
	}
	reg.MustRegister(m.refreshes, m.replays, m.logins, m.decisions)

	return m
}

func (m *Metrics) RefreshFinished(outcome string) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RequestReplayed() {
	if m == nil {
		return
	}
	m.replays.Inc()
}

func (m *Metrics) LoginFinished(outcome string) {
	if m == nil {
		return
	}
	m.logins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) GuardDecided(state string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(state).Inc()
}

// Refreshes exposes the refresh counter for a given outcome, mostly for tests.
func (m *Metrics) Refreshes(outcome string) prometheus.Counter {
	return m.refreshes.WithLabelValues(outcome)
}

func (m *Metrics) Replays() prometheus.Counter {
	return m.replays
}

func (m *Metrics) Logins(outcome string) prometheus.Counter {
	return m.logins.WithLabelValues(outcome)
}

func (m *Metrics) GuardDecisions(state string) prometheus.Counter {
	return m.decisions.WithLabelValues(state)
}
