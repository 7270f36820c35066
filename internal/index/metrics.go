package index

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	buildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "memberqa",
			Subsystem: "index",
			Name:      "build_duration_seconds",
			Help:      "Duration of full index builds in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
	)

	// buildsTotal counts builds.
	// Labels: result (success, error)
	buildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "memberqa",
			Subsystem: "index",
			Name:      "builds_total",
			Help:      "Total number of index builds",
		},
		[]string{"result"},
	)

	clearFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "memberqa",
			Subsystem: "index",
			Name:      "clear_failures_total",
			Help:      "Index clears that failed before a rebuild",
		},
	)

	indexedEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "memberqa",
			Subsystem: "index",
			Name:      "entries",
			Help:      "Number of entries inserted by the last successful build",
		},
	)
)

func observeBuild(start time.Time, err error) {
	buildDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		buildsTotal.WithLabelValues("error").Inc()
		return
	}
	buildsTotal.WithLabelValues("success").Inc()
}
