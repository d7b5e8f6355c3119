package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification module. All methods
// are nil-safe so tests can pass a nil *Metrics.
type Metrics struct {
	// Review decisions by action and outcome
	Decisions *prometheus.CounterVec

	// Reconciliation pass duration
	ReconcileLatency prometheus.Histogram

	// Records created by reconciliation passes
	RecordsCreated prometheus.Counter
}

// New creates a Metrics instance with all verification metrics registered.
func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verifica_review_decisions_total",
			Help: "Total review decisions by action and outcome",
		}, []string{"action", "outcome"}), // action: approve/reject/approve_document/reject_document

		ReconcileLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "verifica_reconcile_duration_seconds",
			Help:    "Duration of reconciliation passes including source loads",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		RecordsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verifica_records_created_total",
			Help: "Verification records created by reconciliation passes",
		}),
	}
}

// IncrementDecision records a review decision outcome.
func (m *Metrics) IncrementDecision(action, outcome string) {
	if m != nil {
		m.Decisions.WithLabelValues(action, outcome).Inc()
	}
}

// ObserveReconcile records a reconciliation pass duration and its created
// record count.
func (m *Metrics) ObserveReconcile(d time.Duration, created int) {
	if m != nil {
		m.ReconcileLatency.Observe(d.Seconds())
		m.RecordsCreated.Add(float64(created))
	}
}
