package memorygate

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fyrsmithlabs/governd/internal/classify"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the memory gate.
type Metrics struct {
	// Entry lifecycle
	EntriesProposedTotal  *prometheus.CounterVec
	EntriesValidatedTotal *prometheus.CounterVec
	EntriesRejectedTotal  *prometheus.CounterVec

	// Classifier vetoes by reason
	ContentRejectionsTotal *prometheus.CounterVec

	// Sink failures (entry stayed Proposed)
	PersistFailuresTotal prometheus.Counter
}

// NewMetrics creates and registers Prometheus metrics for the memory gate.
//
// Uses sync.Once so repeated construction (one gate per test, etc.) never
// trips duplicate-registration panics. All metrics are prefixed with
// "memorygate_".
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			EntriesProposedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "memorygate_entries_proposed_total",
					Help: "Total number of memory entries proposed to the gate",
				},
				[]string{"kind"},
			),

			EntriesValidatedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "memorygate_entries_validated_total",
					Help: "Total number of memory entries validated and persisted",
				},
				[]string{"kind"},
			),

			EntriesRejectedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "memorygate_entries_rejected_total",
					Help: "Total number of memory entries rejected and purged",
				},
				[]string{"kind"},
			),

			ContentRejectionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "memorygate_content_rejections_total",
					Help: "Total number of classifier vetoes at validation time",
				},
				[]string{"reason"},
			),

			PersistFailuresTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "memorygate_persist_failures_total",
					Help: "Total number of persistence sink failures",
				},
			),
		}
	})

	return globalMetrics
}

// RecordProposed records an entry entering the gate.
func (m *Metrics) RecordProposed(kind string) {
	m.EntriesProposedTotal.WithLabelValues(kind).Inc()
}

// RecordValidated records a successful validation and handoff.
func (m *Metrics) RecordValidated(kind string) {
	m.EntriesValidatedTotal.WithLabelValues(kind).Inc()
}

// RecordRejected records an entry being purged.
func (m *Metrics) RecordRejected(kind string) {
	m.EntriesRejectedTotal.WithLabelValues(kind).Inc()
}

// RecordContentRejection records a classifier veto with its reasons.
func (m *Metrics) RecordContentRejection(reasons []classify.Reason) {
	for _, r := range reasons {
		m.ContentRejectionsTotal.WithLabelValues(string(r)).Inc()
	}
}

// RecordPersistFailure records a sink failure.
func (m *Metrics) RecordPersistFailure() {
	m.PersistFailuresTotal.Inc()
}
