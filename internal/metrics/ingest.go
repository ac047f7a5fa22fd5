package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ObservationsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "observations_ingested_total",
			Namespace: WeatherdNamespace,
			Help:      "The total number of observations accepted, per protocol adapter.",
		},
		[]string{"adapter"},
	)

	PayloadsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "payloads_rejected_total",
			Namespace: WeatherdNamespace,
			Help:      "The total number of inbound payloads that produced no observation.",
		},
		[]string{"adapter"},
	)

	FieldsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "fields_rejected_total",
			Namespace: WeatherdNamespace,
			Help:      "The total number of individual fields dropped during normalization.",
		},
		[]string{"reason"},
	)

	IngestLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:      "ingest_latency_seconds",
			Namespace: WeatherdNamespace,
			Buckets:   prometheus.DefBuckets,
			Help:      "The latency of inbound payload handling in seconds.",
		},
		[]string{"adapter"},
	)
)
