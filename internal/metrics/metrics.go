// Package metrics exports counters for policy decisions, confirmations and
// unlocks.  A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "seashail"

// Metrics owns a private registry so tests and several instances in one
// process do not collide.
type Metrics struct {
	registry *prometheus.Registry

	decisions     *prometheus.CounterVec
	confirmations *prometheus.CounterVec
	backups       *prometheus.CounterVec
	unlocks       *prometheus.CounterVec
	auditFailures prometheus.Counter
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policy_decisions_total",
			Help:      "Policy evaluations by operation, outcome and reason.",
		}, []string{"op", "outcome", "reason"}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "write_confirmations_total",
			Help:      "Terminal audit decisions of write requests.",
		}, []string{"decision"}),
		backups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backup_confirmations_total",
			Help:      "Offline share disclosures by result.",
		}, []string{"result"}),
		unlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unlocks_total",
			Help:      "Passphrase unlock attempts by result.",
		}, []string{"result"}),
		auditFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_write_failures_total",
			Help:      "Best-effort history or audit writes that failed.",
		}),
	}
	m.registry.MustRegister(
		m.decisions, m.confirmations, m.backups, m.unlocks, m.auditFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) PolicyDecision(op, outcome, reason string) {
	if m == nil {
		return
	}
	m.decisions.WithLabelValues(op, outcome, reason).Inc()
}

func (m *Metrics) WriteDecision(decision string) {
	if m == nil {
		return
	}
	m.confirmations.WithLabelValues(decision).Inc()
}

func (m *Metrics) Backup(result string) {
	if m == nil {
		return
	}
	m.backups.WithLabelValues(result).Inc()
}

func (m *Metrics) Unlock(result string) {
	if m == nil {
		return
	}
	m.unlocks.WithLabelValues(result).Inc()
}

func (m *Metrics) AuditFailure() {
	if m == nil {
		return
	}
	m.auditFailures.Inc()
}
