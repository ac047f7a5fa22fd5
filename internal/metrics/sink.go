package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SinkDeliveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "sink_delivered_total",
			Namespace: WeatherdNamespace,
			Help:      "The total number of units successfully delivered, per sink.",
		},
		[]string{"sink", "kind"},
	)

	SinkFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "sink_failed_total",
			Namespace: WeatherdNamespace,
			Help:      "The total number of units dropped after exhausting a sink's retry budget.",
		},
		[]string{"sink", "kind"},
	)

	SinkRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "sink_retries_total",
			Namespace: WeatherdNamespace,
			Help:      "The total number of delivery retries, per sink.",
		},
		[]string{"sink"},
	)

	SinkWriteLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:      "sink_write_latency_seconds",
			Namespace: WeatherdNamespace,
			Buckets:   prometheus.DefBuckets,
			Help:      "The latency of sink write operations in seconds.",
		},
		[]string{"sink"},
	)
)
