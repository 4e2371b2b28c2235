package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// wall sync
	BatchFlushesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wall_batch_flushes_total",
		Help: "The total number of pending-buffer flushes into the participant list",
	})
	BatchedEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wall_batched_events_total",
		Help: "The total number of insert events merged through batch flushes",
	})
	SubscriptionDropsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wall_subscription_drops_total",
		Help: "The total number of times the insert subscription disconnected",
	})
	SubscriptionReconnectsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wall_subscription_reconnects_total",
		Help: "The total number of successful subscription reconnects",
	})

	// viewers
	ViewerConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wall_viewer_connections",
		Help: "Currently connected wall viewers",
	})

	// join flow
	JoinsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wall_joins_completed_total",
		Help: "The total number of join flows that reached Complete",
	})
	JoinFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wall_join_failures_total",
		Help: "Join flow failures by stage",
	}, []string{"stage"})
	AvailabilityChecksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wall_availability_checks_total",
		Help: "The total number of handle availability queries hitting the store",
	})
	AvatarBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "wall_avatar_upload_bytes",
		Help:    "Size of accepted avatar files before resampling",
		Buckets: prometheus.ExponentialBuckets(1024, 4, 8),
	})
)
