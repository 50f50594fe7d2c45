package telemetry

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// AuthMetrics counts security decisions and authentication outcomes.
type AuthMetrics struct {
	gateDecisions *prometheus.CounterVec
	authEvents    *prometheus.CounterVec
}

// NewAuthMetrics registers the collectors, reusing ones already registered under the same name.
func NewAuthMetrics(registerer prometheus.Registerer) (*AuthMetrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	gate := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authgate",
		Name:      "gate_decisions_total",
		Help:      "Requests evaluated by the security gate, by outcome and reason.",
	}, []string{"outcome", "reason"})

	auth := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "authgate",
		Name:      "auth_events_total",
		Help:      "Authentication flow outcomes.",
	}, []string{"flow", "result"})

	var err error
	if gate, err = register(registerer, gate); err != nil {
		return nil, err
	}
	if auth, err = register(registerer, auth); err != nil {
		return nil, err
	}

	return &AuthMetrics{gateDecisions: gate, authEvents: auth}, nil
}

func register(registerer prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := registerer.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

// GateDecision records an allow or deny with its reason.
func (m *AuthMetrics) GateDecision(outcome, reason string) {
	if m == nil {
		return
	}
	m.gateDecisions.WithLabelValues(outcome, reason).Inc()
}

// AuthEvent records the result of a login, refresh, logout or reset flow.
func (m *AuthMetrics) AuthEvent(flow, result string) {
	if m == nil {
		return
	}
	m.authEvents.WithLabelValues(flow, result).Inc()
}

// GateDecisions exposes the collector for tests.
func (m *AuthMetrics) GateDecisions() *prometheus.CounterVec {
	return m.gateDecisions
}

// AuthEvents exposes the collector for tests.
func (m *AuthMetrics) AuthEvents() *prometheus.CounterVec {
	return m.authEvents
}
