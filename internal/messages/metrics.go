package messages

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// pageRequests counts API page requests.
	// Labels: result (success, error, forbidden)
	pageRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "memberqa",
			Subsystem: "ingest",
			Name:      "page_requests_total",
			Help:      "Message API page requests by result",
		},
		[]string{"result"},
	)

	fetchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "memberqa",
			Subsystem: "ingest",
			Name:      "messages_fetched_total",
			Help:      "Messages fetched from the message API",
		},
	)

	// loadsTotal counts loads by where the messages came from.
	// Labels: source (cache, source, stale, error)
	loadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "memberqa",
			Subsystem: "ingest",
			Name:      "loads_total",
			Help:      "Message loads by origin",
		},
		[]string{"source"},
	)
)
