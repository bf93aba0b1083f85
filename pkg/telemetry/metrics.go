package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the Prometheus instruments served on /metrics.
type Metrics struct {
	outboxDispatch     *prometheus.CounterVec
	outboxDispatchTime *prometheus.HistogramVec
	outboxBacklog      prometheus.Gauge
	notifications      *prometheus.CounterVec
	notificationTime   *prometheus.HistogramVec
	registryBatches    *prometheus.CounterVec
	registryBatchTime  *prometheus.HistogramVec
}

// NewMetrics registers and returns the Prometheus metrics.
func NewMetrics() *Metrics {
	outboxDispatch := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registra_outbox_dispatch_total",
		Help: "Counts event relay batches by status.",
	}, []string{"status"})

	outboxDispatchTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "registra_outbox_dispatch_duration_seconds",
		Help:    "Event relay batch durations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})

	outboxBacklog := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "registra_outbox_backlog",
		Help: "Number of unpublished events in the outbox.",
	})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registra_notification_delivery_total",
		Help: "Notification delivery outcomes by template.",
	}, []string{"template", "status"})

	notificationTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "registra_notification_delivery_duration_seconds",
		Help:    "Notification delivery roundtrip latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"template"})

	registryBatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registra_registry_batches_total",
		Help: "Registry batch calls by source and status.",
	}, []string{"source", "status"})

	registryBatchTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "registra_registry_batch_duration_seconds",
		Help:    "Registry batch call latency per source.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	prometheus.MustRegister(
		outboxDispatch,
		outboxDispatchTime,
		outboxBacklog,
		notifications,
		notificationTime,
		registryBatches,
		registryBatchTime,
	)

	return &Metrics{
		outboxDispatch:     outboxDispatch,
		outboxDispatchTime: outboxDispatchTime,
		outboxBacklog:      outboxBacklog,
		notifications:      notifications,
		notificationTime:   notificationTime,
		registryBatches:    registryBatches,
		registryBatchTime:  registryBatchTime,
	}
}

// RecordOutboxBatch registers relay batch metrics.
func (m *Metrics) RecordOutboxBatch(status string, duration time.Duration) {
	if m == nil {
		return
	}
	statusLabel := sanitizeLabel(status)
	m.outboxDispatch.WithLabelValues(statusLabel).Inc()
	m.outboxDispatchTime.WithLabelValues(statusLabel).Observe(duration.Seconds())
}

// SetOutboxBacklog updates the backlog gauge.
func (m *Metrics) SetOutboxBacklog(value float64) {
	if m == nil {
		return
	}
	m.outboxBacklog.Set(value)
}

// RecordNotificationDelivery records an outbound notification attempt.
func (m *Metrics) RecordNotificationDelivery(template, status string, duration time.Duration) {
	if m == nil {
		return
	}
	templateLabel := sanitizeLabel(template)
	m.notifications.WithLabelValues(templateLabel, sanitizeLabel(status)).Inc()
	m.notificationTime.WithLabelValues(templateLabel).Observe(duration.Seconds())
}

// RecordRegistryBatch records a registry batch call.
func (m *Metrics) RecordRegistryBatch(source, status string, duration time.Duration) {
	if m == nil {
		return
	}
	sourceLabel := sanitizeLabel(source)
	m.registryBatches.WithLabelValues(sourceLabel, sanitizeLabel(status)).Inc()
	m.registryBatchTime.WithLabelValues(sourceLabel).Observe(duration.Seconds())
}

func sanitizeLabel(val string) string {
	if val == "" {
		return "unknown"
	}
	return val
}
