package server

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks HTTP request counts and latency.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

var (
	serverMetricsOnce sync.Once
	serverMetrics     *Metrics
)

// NewMetrics returns the process-wide server metrics. Registration with the
// default registry happens once; later calls return the same instance.
func NewMetrics() *Metrics {
	serverMetricsOnce.Do(func() {
		serverMetrics = &Metrics{
			requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "governd_http_requests_total",
				Help: "Total HTTP requests by method, route and status.",
			}, []string{"method", "route", "status"}),
			requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "governd_http_request_duration_seconds",
				Help:    "HTTP request latency by method and route.",
				Buckets: prometheus.DefBuckets,
			}, []string{"method", "route"}),
		}
	})
	return serverMetrics
}

// RecordRequest records one completed request.
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
