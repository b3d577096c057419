package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics counts and times every gateway request.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewRegistry returns the registry served on /metrics.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_requests_total",
				Help: "Total number of gateway requests by target, operation and outcome",
			},
			[]string{"target", "op", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_request_duration_seconds",
				Help:    "Gateway request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"target", "op"},
		),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

// observe is deferred with a pointer to the caller's named error result.
func (m *Metrics) observe(target, op string, start time.Time, errp *error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if errp != nil && *errp != nil {
		outcome = "error"
	}
	m.requests.WithLabelValues(target, op, outcome).Inc()
	m.duration.WithLabelValues(target, op).Observe(time.Since(start).Seconds())
}
