package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/proposalhub/notify-fabric/internal/domain"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	reg prometheus.Registerer

	EventsPublished    *prometheus.CounterVec
	ClassifierFallback prometheus.Counter
	RateLimited        *prometheus.CounterVec
	BatchesFlushed     prometheus.Counter
	FlushDuration      prometheus.Histogram
	SubBatchesSent     *prometheus.CounterVec
	NotificationsSent  *prometheus.CounterVec
	DeliveryFailures   *prometheus.CounterVec
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct. The registerer is injected; nothing
// here touches prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reg: reg,

		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notify_events_published_total",
			Help: "Total events handed to Publish, by event kind.",
		}, []string{"kind"}),

		ClassifierFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notify_classifier_fallback_total",
			Help: "Events classified through the generic fallback (unrecognized kind).",
		}),

		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notify_rate_limited_total",
			Help: "Notifications dropped by the per-recipient rate limiter.",
		}, []string{"kind"}),

		BatchesFlushed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notify_batches_flushed_total",
			Help: "Total dispatch queue flushes that carried at least one notification.",
		}),

		FlushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "notify_flush_duration_seconds",
			Help:    "Wall time of a flush, from drain to last channel send finishing.",
			Buckets: prometheus.DefBuckets,
		}),

		SubBatchesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notify_subbatches_sent_total",
			Help: "Sub-batches successfully handed to a channel sender.",
		}, []string{"channel"}),

		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notify_notifications_sent_total",
			Help: "Notifications delivered, counted once per channel they reached.",
		}, []string{"channel"}),

		DeliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notify_delivery_failures_total",
			Help: "Notifications whose channel send attempt returned an error.",
		}, []string{"channel"}),
	}

	reg.MustRegister(
		m.EventsPublished,
		m.ClassifierFallback,
		m.RateLimited,
		m.BatchesFlushed,
		m.FlushDuration,
		m.SubBatchesSent,
		m.NotificationsSent,
		m.DeliveryFailures,
	)

	return m
}

// RegisterQueueDepth exposes the live dispatch queue depth as a gauge backed
// by the given function.
func (m *Metrics) RegisterQueueDepth(depth func() int) {
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "notify_queue_depth",
		Help: "Current number of notifications awaiting a flush.",
	}, func() float64 { return float64(depth()) }))
}

// PublishHooks returns the metric callbacks expected by engine.PublishHooks.
// Centralises the prometheus observation calls so the engine stays import-free.
func (m *Metrics) PublishHooks() (
	onPublished func(domain.EventKind),
	onFallback func(domain.EventKind),
	onRateLimited func(domain.EventKind),
) {
	onPublished = func(kind domain.EventKind) {
		m.EventsPublished.WithLabelValues(string(kind)).Inc()
	}
	onFallback = func(domain.EventKind) {
		m.ClassifierFallback.Inc()
	}
	onRateLimited = func(kind domain.EventKind) {
		m.RateLimited.WithLabelValues(string(kind)).Inc()
	}
	return
}

// FlushHook returns the callback observed by the batch scheduler.
func (m *Metrics) FlushHook() func(batchLen int, elapsed time.Duration) {
	return func(_ int, elapsed time.Duration) {
		m.BatchesFlushed.Inc()
		m.FlushDuration.Observe(elapsed.Seconds())
	}
}

// SendHooks returns the callbacks observed by the channel router.
func (m *Metrics) SendHooks() (
	onSent func(ch domain.Channel, count int, latency time.Duration),
	onFailed func(ch domain.Channel, count int),
) {
	onSent = func(ch domain.Channel, count int, _ time.Duration) {
		m.SubBatchesSent.WithLabelValues(string(ch)).Inc()
		m.NotificationsSent.WithLabelValues(string(ch)).Add(float64(count))
	}
	onFailed = func(ch domain.Channel, count int) {
		m.DeliveryFailures.WithLabelValues(string(ch)).Add(float64(count))
	}
	return
}
