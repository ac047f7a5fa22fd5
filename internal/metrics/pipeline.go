package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueueDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "queue_dropped_total",
		Namespace: WeatherdNamespace,
		Help:      "The total number of observations dropped because the ingest queue was saturated.",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name:      "queue_depth",
		Namespace: WeatherdNamespace,
		Help:      "The current number of observations waiting in the ingest queue.",
	})

	LateObservationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "late_observations_total",
		Namespace: WeatherdNamespace,
		Help:      "The total number of observations dropped for arriving after their window closed.",
	})

	WindowsClosedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "windows_closed_total",
			Namespace: WeatherdNamespace,
			Help:      "The total number of aggregation windows closed, by trigger.",
		},
		[]string{"trigger"},
	)
)
