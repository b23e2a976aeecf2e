package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	EncodeRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "router_encode_requests_total",
		Help: "Number of swap encoding requests, by endpoint",
	}, []string{"endpoint"})

	EncodeErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "router_encode_errors_total",
		Help: "Number of failed swap encodings",
	})

	EncodeLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "router_encode_latency_seconds",
		Help:    "Time to encode a swap into calldata",
		Buckets: prometheus.DefBuckets,
	})

	SignerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "router_signer_errors_total",
		Help: "Number of failed access token signer round-trips",
	})

	SignerLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "router_signer_latency_seconds",
		Help:    "Access token signer round-trip time",
		Buckets: prometheus.DefBuckets,
	})

	PublishedSwaps = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "router_published_swaps_total",
		Help: "Number of encoded swaps published to the feed",
	})
)

func init() {
	prometheus.MustRegister(
		EncodeRequests,
		EncodeErrors,
		EncodeLatency,
		SignerErrors,
		SignerLatency,
		PublishedSwaps,
	)
}
