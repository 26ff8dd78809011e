package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsNamespace = "stakebank"
	moduleSubsystem  = "module"
	unknownLabel     = "unknown"
)

// ModuleMetricsRecorder tracks HTTP API activity per module and method.
type ModuleMetricsRecorder struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleMetrics     *ModuleMetricsRecorder
)

func moduleCounter(name, help string, labels ...string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: moduleSubsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

// NewModuleMetrics builds the API collectors. They are registered with reg
// when it is non-nil.
func NewModuleMetrics(reg prometheus.Registerer) *ModuleMetricsRecorder {
	m := &ModuleMetricsRecorder{
		requests:  moduleCounter("requests_total", "API requests by module, method and outcome.", "module", "method", "outcome"),
		errors:    moduleCounter("errors_total", "Failed API requests by HTTP status.", "module", "method", "status"),
		throttles: moduleCounter("throttles_total", "Requests rejected before dispatch.", "module", "reason"),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: moduleSubsystem,
			Name:      "request_duration_seconds",
			Help:      "Handler latency including contract dispatch.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"module", "method"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.errors, m.latency, m.throttles)
	}
	return m
}

// ModuleMetrics returns the process-wide recorder bound to the default
// registry.
func ModuleMetrics() *ModuleMetricsRecorder {
	moduleMetricsOnce.Do(func() {
		moduleMetrics = NewModuleMetrics(prometheus.DefaultRegisterer)
	})
	return moduleMetrics
}

func labelOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// outcomeFor buckets an HTTP status into success, client_error or
// server_error.
func outcomeFor(status int) string {
	switch {
	case status >= 500:
		return "server_error"
	case status >= 400:
		return "client_error"
	default:
		return "success"
	}
}

// Observe records one handled request. status is the code written to the
// client.
func (m *ModuleMetricsRecorder) Observe(module, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	module, method = labelOr(module, unknownLabel), labelOr(method, unknownLabel)
	outcome := outcomeFor(status)
	m.requests.WithLabelValues(module, method, outcome).Inc()
	if outcome != "success" {
		m.errors.WithLabelValues(module, method, strconv.Itoa(status)).Inc()
	}
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle counts a request rejected by the rate limiter.
func (m *ModuleMetricsRecorder) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	m.throttles.WithLabelValues(labelOr(module, unknownLabel), labelOr(reason, "unspecified")).Inc()
}
