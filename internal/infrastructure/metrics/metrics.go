package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PaymentMetrics groups the counters operators watch for the payment
// lifecycle. A nil *PaymentMetrics is valid and records nothing.
type PaymentMetrics struct {
	OrdersCreatedTotal     *prometheus.CounterVec
	ReconciliationsTotal   *prometheus.CounterVec
	SignatureFailuresTotal *prometheus.CounterVec
	WebhookEventsTotal     *prometheus.CounterVec
	TornWritesTotal        *prometheus.CounterVec
	StrandedCapturesTotal  *prometheus.CounterVec
	CaseTransitionsTotal   *prometheus.CounterVec
	ReconcileDuration      *prometheus.HistogramVec
}

func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	factory := promauto.With(reg)

	return &PaymentMetrics{
		OrdersCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casepay_orders_created_total",
				Help: "Gateway orders issued with a pending payment row",
			},
			[]string{"currency"},
		),

		ReconciliationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casepay_reconciliations_total",
				Help: "Payment success applications by source and outcome",
			},
			[]string{"source", "outcome"},
		),

		SignatureFailuresTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casepay_signature_failures_total",
				Help: "Rejected gateway signatures by channel (client, webhook)",
			},
			[]string{"channel"},
		),

		WebhookEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casepay_webhook_events_total",
				Help: "Webhook deliveries by event type and outcome",
			},
			[]string{"event", "outcome"},
		),

		TornWritesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casepay_torn_writes_total",
				Help: "Completed payments whose case update failed or was resumed",
			},
			[]string{"stage"},
		),

		StrandedCapturesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casepay_stranded_captures_total",
				Help: "Gateway successes for orders already failed or superseded; each needs a refund or manual entry",
			},
			[]string{"source"},
		),

		CaseTransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "casepay_case_transitions_total",
				Help: "Case status transitions by target status",
			},
			[]string{"to"},
		),

		ReconcileDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "casepay_reconcile_duration_seconds",
				Help:    "Time spent applying one payment success",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
			},
			[]string{"source"},
		),
	}
}

func (m *PaymentMetrics) OrderCreated(currency string) {
	if m == nil {
		return
	}
	m.OrdersCreatedTotal.WithLabelValues(currency).Inc()
}

func (m *PaymentMetrics) Reconciled(source, outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.ReconciliationsTotal.WithLabelValues(source, outcome).Inc()
	m.ReconcileDuration.WithLabelValues(source).Observe(time.Since(started).Seconds())
}

func (m *PaymentMetrics) SignatureFailed(channel string) {
	if m == nil {
		return
	}
	m.SignatureFailuresTotal.WithLabelValues(channel).Inc()
}

func (m *PaymentMetrics) WebhookHandled(event, outcome string) {
	if m == nil {
		return
	}
	m.WebhookEventsTotal.WithLabelValues(event, outcome).Inc()
}

func (m *PaymentMetrics) StrandedCapture(source string) {
	if m == nil {
		return
	}
	m.StrandedCapturesTotal.WithLabelValues(source).Inc()
}

func (m *PaymentMetrics) TornWrite(stage string) {
	if m == nil {
		return
	}
	m.TornWritesTotal.WithLabelValues(stage).Inc()
}

func (m *PaymentMetrics) CaseTransitioned(to string) {
	if m == nil {
		return
	}
	m.CaseTransitionsTotal.WithLabelValues(to).Inc()
}
