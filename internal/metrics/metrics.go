// Package metrics registers the Prometheus metrics for the tuber
// dispatcher. Import this package (via blank import, or directly)
// from the server entry point before the /metrics handler is mounted.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts dispatched batch items labelled by request kind
	// ("describe", "invoke") and outcome ("success", "error").
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tuber_requests_total",
			Help: "Total number of dispatched requests.",
		},
		[]string{"kind", "status"},
	)

	// RequestDuration observes per-item dispatch latency in seconds.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tuber_request_duration_seconds",
			Help:    "Per-call dispatch duration in seconds.",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"kind"},
	)

	// BatchSize observes how many items arrive in one HTTP exchange.
	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tuber_batch_size",
			Help:    "Number of request items per HTTP exchange.",
			Buckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
		},
	)

	// WarningsTotal counts warnings raised by invoked methods.
	WarningsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tuber_warnings_total",
			Help: "Total warnings captured during method invocation.",
		},
	)

	// CodecErrorsTotal counts encode/decode failures labelled by media type.
	CodecErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tuber_codec_errors_total",
			Help: "Total codec encode/decode errors by media type.",
		},
		[]string{"media_type", "direction"},
	)
)
