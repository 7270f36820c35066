package retrieval

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// retrievalDuration tracks end-to-end retrieval latency.
	// Labels: result (success, error)
	retrievalDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "memberqa",
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "Duration of retrievals in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"result"},
	)

	resultSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "memberqa",
			Subsystem: "retrieval",
			Name:      "result_size",
			Help:      "Number of messages returned per successful retrieval",
			Buckets:   prometheus.LinearBuckets(0, 2, 11),
		},
	)

	fallbacksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "memberqa",
			Subsystem: "retrieval",
			Name:      "fallbacks_total",
			Help:      "Member-filtered queries retried without a filter",
		},
	)

	expansionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "memberqa",
			Subsystem: "retrieval",
			Name:      "expansions_total",
			Help:      "Centroid expansion queries issued",
		},
	)
)

func observeRetrieval(start time.Time, n int, err error) {
	if err != nil {
		retrievalDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return
	}
	retrievalDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())
	resultSize.Observe(float64(n))
}
