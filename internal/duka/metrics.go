package duka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// fetchMetrics tracks the fetch path's own health, separate from any
// downstream export metrics: fetches, retries, cache hit/miss, decode
// errors and records decoded, following the *Vec + promauto pattern
// pkg/kafka.Producer uses for its own counters.
var (
	fetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duka_fetch_total",
			Help: "Total network fetches completed by the HTTP fetcher, by outcome",
		},
		[]string{"outcome"}, // ok, error, empty
	)
	fetchRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duka_fetch_retries_total",
			Help: "Total retry attempts issued by the HTTP fetcher",
		},
		[]string{"reason"}, // transport, http_status, decompression, empty_body
	)
	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duka_cache_lookups_total",
			Help: "Cache read attempts, by hit or miss",
		},
		[]string{"result"},
	)
	decodeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duka_decode_errors_total",
			Help: "Decode failures, by decoder",
		},
		[]string{"decoder"}, // tick, bar
	)
	recordsDecoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duka_records_decoded_total",
			Help: "Records successfully decoded, by kind",
		},
		[]string{"kind"}, // tick, bar
	)
)
