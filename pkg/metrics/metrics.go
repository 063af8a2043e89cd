package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "marketplace"

// Domain records order lifecycle, payment and data-store outcomes.
type Domain struct {
	transitions *prometheus.CounterVec
	payments    *prometheus.CounterVec
	storeRetry  *prometheus.CounterVec
}

// NewDomain registers the domain metrics on the provided registerer. A nil
// registerer yields a no-op recorder.
func NewDomain(reg prometheus.Registerer) *Domain {
	if reg == nil {
		return &Domain{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "laundry_order_transitions_total",
		Help:      "Laundry order status transitions by outcome.",
	}, []string{"from", "to", "result"})
	payments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_total",
		Help:      "Payment operations by kind and outcome.",
	}, []string{"kind", "status"})
	storeRetry := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "store_call_retries_total",
		Help:      "Data store calls that needed a second attempt.",
	}, []string{"result"})
	reg.MustRegister(transitions, payments, storeRetry)
	return &Domain{
		transitions: transitions,
		payments:    payments,
		storeRetry:  storeRetry,
	}
}

// ObserveTransition counts an order status change attempt.
func (d *Domain) ObserveTransition(from, to, result string) {
	if d == nil || d.transitions == nil {
		return
	}
	d.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to), normalizeLabel(result)).Inc()
}

// ObservePayment counts a payment record or refund attempt.
func (d *Domain) ObservePayment(kind, status string) {
	if d == nil || d.payments == nil {
		return
	}
	d.payments.WithLabelValues(normalizeLabel(kind), normalizeLabel(status)).Inc()
}

// ObserveStoreRetry satisfies db.RetryObserver.
func (d *Domain) ObserveStoreRetry(result string) {
	if d == nil || d.storeRetry == nil {
		return
	}
	d.storeRetry.WithLabelValues(normalizeLabel(result)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
