package detect

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// detectionsTotal counts detections by outcome.
// Labels: tier (literal, fuzzy, none)
var detectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "memberqa",
		Subsystem: "detect",
		Name:      "detections_total",
		Help:      "Total number of member detections by matching tier",
	},
	[]string{"tier"},
)
