package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Publisher records outbox publisher batches.
type Publisher struct {
	duration  *prometheus.HistogramVec
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
}

// NewPublisher registers the outbox publisher metrics on the provided registerer.
func NewPublisher(reg prometheus.Registerer) *Publisher {
	if reg == nil {
		return &Publisher{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "outbox_batch_duration_seconds",
		Help:      "Duration of outbox publish batches in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"broker"})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_published_total",
		Help:      "Outbox events delivered to the broker.",
	}, []string{"broker"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_failed_total",
		Help:      "Outbox events the broker rejected.",
	}, []string{"broker"})
	reg.MustRegister(duration, published, failed)
	return &Publisher{
		duration:  duration,
		published: published,
		failed:    failed,
	}
}

// ObserveBatch records one publish batch.
func (p *Publisher) ObserveBatch(broker string, elapsed time.Duration, published, failed int) {
	if p == nil || p.duration == nil {
		return
	}
	broker = normalizeLabel(broker)
	p.duration.WithLabelValues(broker).Observe(elapsed.Seconds())
	if published > 0 {
		p.published.WithLabelValues(broker).Add(float64(published))
	}
	if failed > 0 {
		p.failed.WithLabelValues(broker).Add(float64(failed))
	}
}
