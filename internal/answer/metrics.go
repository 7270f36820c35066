package answer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// generationsTotal counts answers.
	// Labels: result (success, error, no_context)
	generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "memberqa",
			Subsystem: "answer",
			Name:      "generations_total",
			Help:      "Answer generations by result",
		},
		[]string{"result"},
	)

	generationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "memberqa",
			Subsystem: "answer",
			Name:      "model_duration_seconds",
			Help:      "Chat model call latency in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2, 5, 10, 30, 60},
		},
	)
)
