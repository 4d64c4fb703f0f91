package channel

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	evaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channel_evaluations_total",
			Help: "Total number of (symbol, date) evaluations by outcome",
		},
		[]string{"outcome"}, // "success", "insufficient_data", "no_valid_window", "degenerate_fit", "error"
	)

	batchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "channel_batch_duration_seconds",
			Help:    "Wall time of one batch run in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 16),
		},
	)

	symbolsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "channel_symbols_processed_total",
			Help: "Total number of symbols whose series was fully evaluated",
		},
	)

	windowLength = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "channel_window_length_days",
			Help:    "Calendar length of the winning regression window",
			Buckets: []float64{20, 30, 45, 60, 90, 120, 180, 250, 365, 730},
		},
	)

	publishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "channel_publish_total",
			Help: "Total number of latest-channel publishes to Redis",
		},
		[]string{"status"}, // "success", "error", "rejected"
	)
)
