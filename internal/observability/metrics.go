package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	rotationTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seqforge",
			Subsystem: "rotation",
			Name:      "ticks_total",
			Help:      "Scheduler ticks by selected label.",
		},
		[]string{"label"},
	)
	rotationSinkFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seqforge",
			Subsystem: "rotation",
			Name:      "sink_failures_total",
			Help:      "Display sink publish failures, including recovered panics.",
		},
		[]string{"label"},
	)
	rotationTickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "seqforge",
			Subsystem: "rotation",
			Name:      "tick_duration_seconds",
			Help:      "Time spent computing and publishing one snapshot.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	sequenceExpansions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "seqforge",
			Subsystem: "sequence",
			Name:      "expansions_total",
			Help:      "Hash-chain expansions by hash algorithm and cache outcome.",
		},
		[]string{"hash", "cache"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(rotationTicks, rotationSinkFailures, rotationTickDuration, sequenceExpansions)
	})
}

func RecordTick(label string, duration time.Duration) {
	RegisterMetrics()
	rotationTicks.WithLabelValues(label).Inc()
	rotationTickDuration.Observe(duration.Seconds())
}

func RecordSinkFailure(label string) {
	RegisterMetrics()
	rotationSinkFailures.WithLabelValues(label).Inc()
}

// RecordExpansion counts one expansion; cache is "hit" or "miss".
func RecordExpansion(hash, cache string) {
	RegisterMetrics()
	sequenceExpansions.WithLabelValues(hash, cache).Inc()
}

func TickCount(label string) prometheus.Counter {
	return rotationTicks.WithLabelValues(label)
}

func SinkFailureCount(label string) prometheus.Counter {
	return rotationSinkFailures.WithLabelValues(label)
}

func ExpansionCount(hash, cache string) prometheus.Counter {
	return sequenceExpansions.WithLabelValues(hash, cache)
}
