// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RatingRecomputes counts rating recomputes by result (ok, not_found, error).
	RatingRecomputes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ficehub_rating_recompute_total",
		Help: "Total user rating recomputes by result",
	}, []string{"result"})

	RatingRecomputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ficehub_rating_recompute_duration_seconds",
		Help:    "User rating recompute duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~1s
	})

	// SlugCollisions counts unique violations hit while claiming a slug.
	SlugCollisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ficehub_slug_collisions_total",
		Help: "Slug claims that lost a race and were retried",
	}, []string{"namespace"})

	SearchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ficehub_search_duration_seconds",
		Help:    "Post search duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"cache"})

	EventQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ficehub_event_queue_depth",
		Help: "Authors waiting for a rating recompute",
	})

	// EventDeliveries counts dispatcher deliveries by result (ok, inline, redelivered, dropped).
	EventDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ficehub_event_deliveries_total",
		Help: "Event deliveries by result",
	}, []string{"result"})
)
