// Package observability holds the Prometheus collectors shared by the tracker.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	storeOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity_tracker",
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Store operations grouped by operation and result.",
	}, []string{"op", "result"})

	storeDegraded = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "activity_tracker",
		Subsystem: "store",
		Name:      "degraded",
		Help:      "1 while writes are routed to the fallback store.",
	})

	logsRecorded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "activity_tracker",
		Name:      "logs_recorded_total",
		Help:      "Log entries successfully persisted.",
	})

	eventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity_tracker",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Change events handed to the publisher, by type and result.",
	}, []string{"type", "result"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "activity_tracker",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Time spent serving HTTP requests.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"path", "method"})
)

func init() {
	prometheus.MustRegister(storeOperations, storeDegraded, logsRecorded, eventsPublished, httpDuration)
}

// RecordStoreOp counts one store operation.
func RecordStoreOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	storeOperations.WithLabelValues(op, result).Inc()
}

// SetStoreDegraded flips the fallback gauge.
func SetStoreDegraded(degraded bool) {
	if degraded {
		storeDegraded.Set(1)
		return
	}
	storeDegraded.Set(0)
}

// RecordLogPersisted bumps the persisted log counter.
func RecordLogPersisted() { logsRecorded.Inc() }

// RecordEventPublished counts a publish attempt.
func RecordEventPublished(eventType string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	eventsPublished.WithLabelValues(eventType, result).Inc()
}

// ObserveHTTP records the duration of a served request.
func ObserveHTTP(path, method string, d time.Duration) {
	httpDuration.WithLabelValues(path, method).Observe(d.Seconds())
}

// StoreDegradedValue exposes the gauge for tests and health checks.
func StoreDegradedValue() prometheus.Gauge { return storeDegraded }

// LogsRecorded exposes the counter for tests.
func LogsRecorded() prometheus.Counter { return logsRecorded }

// EventsPublished exposes one series of the publish counter for tests.
func EventsPublished(eventType, result string) prometheus.Counter {
	return eventsPublished.WithLabelValues(eventType, result)
}
