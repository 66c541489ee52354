// Package metrics exposes Prometheus counters for credential issuance and
// session lifecycle outcomes. A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "credgate"

// Metrics groups the service counters.
type Metrics struct {
	sessionsIssued     *prometheus.CounterVec
	refreshOutcomes    *prometheus.CounterVec
	confirmationEmails *prometheus.CounterVec
	confirmations      *prometheus.CounterVec
	apiKeys            *prometheus.CounterVec
	throttled          *prometheus.CounterVec
}

// New creates the counters and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessionsIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "issued_total",
			Help:      "Token pairs issued, by trigger.",
		}, []string{"trigger"}),
		refreshOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sessions",
			Name:      "refresh_total",
			Help:      "Refresh attempts, by outcome.",
		}, []string{"outcome"}),
		confirmationEmails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "confirmation",
			Name:      "emails_total",
			Help:      "Confirmation email requests, by outcome.",
		}, []string{"outcome"}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "confirmation",
			Name:      "confirm_total",
			Help:      "Email confirmation attempts, by outcome.",
		}, []string{"outcome"}),
		apiKeys: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api_keys",
			Name:      "operations_total",
			Help:      "API key operations, by kind.",
		}, []string{"op"}),
		throttled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "throttled_total",
			Help:      "Requests rejected by the per-client limiter, by route.",
		}, []string{"route"}),
	}

	reg.MustRegister(
		m.sessionsIssued,
		m.refreshOutcomes,
		m.confirmationEmails,
		m.confirmations,
		m.apiKeys,
		m.throttled,
	)
	return m
}

func (m *Metrics) SessionIssued(trigger string) {
	if m == nil {
		return
	}
	m.sessionsIssued.WithLabelValues(trigger).Inc()
}

func (m *Metrics) Refresh(outcome string) {
	if m == nil {
		return
	}
	m.refreshOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ConfirmationEmail(outcome string) {
	if m == nil {
		return
	}
	m.confirmationEmails.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Confirmation(outcome string) {
	if m == nil {
		return
	}
	m.confirmations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ApiKey(op string) {
	if m == nil {
		return
	}
	m.apiKeys.WithLabelValues(op).Inc()
}

func (m *Metrics) Throttled(route string) {
	if m == nil {
		return
	}
	m.throttled.WithLabelValues(route).Inc()
}
