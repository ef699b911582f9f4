// Package metrics exposes Prometheus instruments for detection runs, sinks
// and the dashboard surfaces.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "usage_watch"

var (
	// ReadingsFetchedTotal counts valid readings handed to the detector.
	ReadingsFetchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_fetched_total",
			Help:      "Total number of readings fetched for detection.",
		},
	)

	// ReadingsRejectedTotal counts readings skipped by validation, by field.
	ReadingsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_rejected_total",
			Help:      "Total number of readings rejected by validation.",
		},
		[]string{"field"},
	)

	VerdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verdicts_total",
			Help:      "Total number of verdicts by strategy and severity.",
		},
		[]string{"strategy", "severity"},
	)

	RecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "anomaly_records_total",
			Help:      "Total number of anomaly records emitted by max severity.",
		},
		[]string{"severity"},
	)

	RunDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Detection run duration in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2.5, 10), // 5ms to ~19s
		},
	)

	// ProfilesTracked is the number of (customer, utility) baselines held.
	ProfilesTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "profiles_tracked",
			Help:      "Number of usage profiles in the profile table.",
		},
	)

	SinkFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_failures_total",
			Help:      "Total number of failed publishes by sink.",
		},
		[]string{"sink"},
	)

	// WebSocketConnectionsActive is current number of dashboard clients.
	WebSocketConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections_active",
			Help:      "Number of active WebSocket connections.",
		},
	)
)
