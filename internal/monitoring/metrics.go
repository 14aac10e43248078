// Package monitoring exposes prometheus metrics and a point-in-time activity
// snapshot of the dataset.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's prometheus collectors.
type Metrics struct {
	Mutations       *prometheus.CounterVec
	AuditAppends    *prometheus.CounterVec
	StoreOperations *prometheus.CounterVec
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketintel",
			Name:      "mutations_total",
			Help:      "Committed record mutations by action.",
		}, []string{"action"}),
		AuditAppends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketintel",
			Name:      "audit_appends_total",
			Help:      "Audit log append attempts by result.",
		}, []string{"result"}),
		StoreOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketintel",
			Name:      "store_operations_total",
			Help:      "Record store calls by operation and result.",
		}, []string{"op", "result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketintel",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "marketintel",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	if reg != nil {
		reg.MustRegister(m.Mutations, m.AuditAppends, m.StoreOperations, m.HTTPRequests, m.HTTPDuration)
	}
	return m
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveMutation counts a committed mutation.
func (m *Metrics) ObserveMutation(action string) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(action).Inc()
}

// ObserveAudit counts an audit append attempt.
func (m *Metrics) ObserveAudit(err error) {
	if m == nil {
		return
	}
	m.AuditAppends.WithLabelValues(result(err)).Inc()
}

// ObserveStore counts a store call.
func (m *Metrics) ObserveStore(op string, err error) {
	if m == nil {
		return
	}
	m.StoreOperations.WithLabelValues(op, result(err)).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, statusLabel(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
