package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private prometheus registry so tests can build independent
// servers without duplicate registration panics.
type Metrics struct {
	registry         *prometheus.Registry
	httpDuration     *prometheus.HistogramVec
	signerDuration   *prometheus.HistogramVec
	ballotOutcomes   *prometheus.CounterVec
	phaseActivations *prometheus.CounterVec
	ceremonyOutcomes *prometheus.CounterVec
	finalizations    *prometheus.CounterVec
	authorizations   *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "evoting"
	}
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route pattern and status code.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		signerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "signer",
			Name:      "call_duration_seconds",
			Help:      "RingCT signer RPC latency by operation and outcome.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"op", "outcome"}),
		ballotOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ballot",
			Name:      "cast_outcomes_total",
			Help:      "Ballot cast attempts by outcome.",
		}, []string{"outcome"}),
		phaseActivations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "phase",
			Name:      "activations_total",
			Help:      "Election phase activations by phase name.",
		}, []string{"phase"}),
		ceremonyOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "passkey",
			Name:      "ceremony_outcomes_total",
			Help:      "Passkey ceremony completions by ceremony and outcome.",
		}, []string{"ceremony", "outcome"}),
		finalizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tally",
			Name:      "finalization_attempts_total",
			Help:      "Tally finalization attempts by outcome.",
		}, []string{"outcome"}),
		authorizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "access",
			Name:      "decisions_total",
			Help:      "Route authorization decisions by outcome.",
		}, []string{"outcome"}),
	}
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpDuration,
		m.signerDuration,
		m.ballotOutcomes,
		m.phaseActivations,
		m.ceremonyOutcomes,
		m.finalizations,
		m.authorizations,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveHTTP(route string, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveSignerCall(op string, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.signerDuration.WithLabelValues(op, outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) CountBallotOutcome(outcome string) {
	if m == nil {
		return
	}
	m.ballotOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CountPhaseActivation(phase string) {
	if m == nil {
		return
	}
	m.phaseActivations.WithLabelValues(phase).Inc()
}

func (m *Metrics) CountCeremonyOutcome(ceremony string, outcome string) {
	if m == nil {
		return
	}
	m.ceremonyOutcomes.WithLabelValues(ceremony, outcome).Inc()
}

func (m *Metrics) CountFinalization(outcome string) {
	if m == nil {
		return
	}
	m.finalizations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CountAuthorization(outcome string) {
	if m == nil {
		return
	}
	m.authorizations.WithLabelValues(outcome).Inc()
}
