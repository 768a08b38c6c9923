// internal/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Materialization outcomes.
const (
	OutcomeCreated          = "created"
	OutcomeExisting         = "existing"
	OutcomeRecoveredPayment = "recovered_payment"
	OutcomeUnresolved       = "unresolved"
	OutcomeError            = "error"
)

// Webhook results.
const (
	WebhookHandled          = "handled"
	WebhookIgnored          = "ignored"
	WebhookInvalidSignature = "invalid_signature"
	WebhookFailed           = "failed"
)

type Metrics struct {
	materializations     *prometheus.CounterVec
	materializeDuration  prometheus.Histogram
	webhookEvents        *prometheus.CounterVec
	amountMismatches     prometheus.Counter
	idempotencyConflicts *prometheus.CounterVec
}

// New registers the reconciler collectors with reg. Pass
// prometheus.DefaultRegisterer in the server and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		materializations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reconciler_materializations_total",
			Help: "Order materialization attempts by outcome.",
		}, []string{"outcome"}),
		materializeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "reconciler_materialization_duration_seconds",
			Help:    "Time spent materializing one confirmed payment.",
			Buckets: prometheus.DefBuckets,
		}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reconciler_webhook_events_total",
			Help: "Gateway webhook deliveries by event type and result.",
		}, []string{"type", "result"}),
		amountMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reconciler_amount_mismatch_total",
			Help: "Paid amounts that differed from the recomputed order total.",
		}),
		idempotencyConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reconciler_idempotency_conflicts_total",
			Help: "Inserts that lost a uniqueness race, by record.",
		}, []string{"record"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.materializations,
			m.materializeDuration,
			m.webhookEvents,
			m.amountMismatches,
			m.idempotencyConflicts,
		)
	}
	return m
}

// Nop returns collectors that are never registered.
func Nop() *Metrics {
	return New(nil)
}

func (m *Metrics) Materialization(outcome string, took time.Duration) {
	m.materializations.WithLabelValues(outcome).Inc()
	m.materializeDuration.Observe(took.Seconds())
}

func (m *Metrics) WebhookEvent(eventType, result string) {
	if eventType == "" {
		eventType = "unknown"
	}
	m.webhookEvents.WithLabelValues(eventType, result).Inc()
}

func (m *Metrics) AmountMismatch() {
	m.amountMismatches.Inc()
}

func (m *Metrics) IdempotencyConflict(record string) {
	m.idempotencyConflicts.WithLabelValues(record).Inc()
}

// Counters exposed for tests.

func (m *Metrics) MaterializationsCounter() *prometheus.CounterVec { return m.materializations }
func (m *Metrics) WebhookEventsCounter() *prometheus.CounterVec { return m.webhookEvents }
func (m *Metrics) AmountMismatchCounter() prometheus.Counter { return m.amountMismatches }
func (m *Metrics) ConflictsCounter() *prometheus.CounterVec { return m.idempotencyConflicts }
