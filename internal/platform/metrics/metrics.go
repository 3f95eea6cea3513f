package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the gateway pipeline.
type Metrics struct {
	PolicyDecisions    *prometheus.CounterVec
	ResolvedQueries    *prometheus.CounterVec
	Executions         *prometheus.CounterVec
	OracleLatency      prometheus.Histogram
	ExecutionLatency   prometheus.Histogram
	AuditDropped       prometheus.Counter
	AuditSinkFailures  *prometheus.CounterVec
	OracleCircuitState prometheus.Gauge
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers metrics on reg; tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PolicyDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zerotrust_policy_decisions_total",
			Help: "Policy verdicts by decision (allow, deny) and reason",
		}, []string{"decision", "reason"}),
		ResolvedQueries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zerotrust_resolved_queries_total",
			Help: "Resolved SQL statements by source tier",
		}, []string{"source"}),
		Executions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zerotrust_executions_total",
			Help: "Query executions by database and outcome (ok, degraded, failed)",
		}, []string{"database", "outcome"}),
		OracleLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "zerotrust_oracle_latency_seconds",
			Help:    "Latency of natural-language translation calls",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
		}),
		ExecutionLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "zerotrust_execution_latency_seconds",
			Help:    "Latency of query execution including the fallback attempt",
			Buckets: prometheus.DefBuckets,
		}),
		AuditDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "zerotrust_audit_dropped_total",
			Help: "Audit records dropped because the background queue was full",
		}),
		AuditSinkFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zerotrust_audit_sink_failures_total",
			Help: "Audit deliveries that failed, by sink",
		}, []string{"sink"}),
		OracleCircuitState: f.NewGauge(prometheus.GaugeOpts{
			Name: "zerotrust_oracle_circuit_open",
			Help: "Oracle circuit breaker state (0=closed, 1=open)",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "zerotrust_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "zerotrust_http_request_duration_seconds",
			Help:    "HTTP request duration by method and route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObservePolicyDecision counts one verdict.
func (m *Metrics) ObservePolicyDecision(allowed bool, reason string) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	m.PolicyDecisions.WithLabelValues(decision, reason).Inc()
}

// ObserveResolved counts one resolved statement by its source tier.
func (m *Metrics) ObserveResolved(source string) {
	m.ResolvedQueries.WithLabelValues(source).Inc()
}

// ObserveExecution counts one execution outcome and its duration.
func (m *Metrics) ObserveExecution(database, outcome string, d time.Duration) {
	m.Executions.WithLabelValues(database, outcome).Inc()
	m.ExecutionLatency.Observe(d.Seconds())
}

// ObserveOracleLatency records a translation call duration.
func (m *Metrics) ObserveOracleLatency(d time.Duration) {
	m.OracleLatency.Observe(d.Seconds())
}

// IncAuditDropped counts a record dropped at enqueue time.
func (m *Metrics) IncAuditDropped() {
	m.AuditDropped.Inc()
}

// IncAuditSinkFailure counts a failed delivery to sink.
func (m *Metrics) IncAuditSinkFailure(sink string) {
	m.AuditSinkFailures.WithLabelValues(sink).Inc()
}

// SetOracleCircuitOpen sets the oracle circuit gauge.
func (m *Metrics) SetOracleCircuitOpen(open bool) {
	if open {
		m.OracleCircuitState.Set(1)
	} else {
		m.OracleCircuitState.Set(0)
	}
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
