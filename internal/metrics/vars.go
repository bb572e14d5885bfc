package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	QuoteRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fx_quote_requests_total",
		Help: "Number of priced-quote requests issued",
	})

	BookRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fx_book_requests_total",
		Help: "Number of order-book snapshot requests issued",
	})

	RateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fx_rate_limited_total",
		Help: "Requests that exhausted the throttling retry budget",
	})

	Records = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fx_records_total",
		Help: "Cost records produced, by status",
	}, []string{"status"})

	QuoteLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fx_quote_latency_seconds",
		Help:    "Time to obtain a priced quote",
		Buckets: prometheus.DefBuckets,
	})

	BookBps = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fx_book_bps",
		Help: "Latest book-path cost vs composed mid, bps",
	}, []string{"pair"})
)

func init() {
	prometheus.MustRegister(
		QuoteRequests,
		BookRequests,
		RateLimited,
		Records,
		QuoteLatency,
		BookBps,
	)
}
