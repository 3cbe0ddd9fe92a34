package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cookiescraper",
			Name:      "searches_total",
			Help:      "Store searches by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cookiescraper",
			Name:      "search_duration_seconds",
			Help:      "End to end store search duration",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"method"},
	)

	ProviderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cookiescraper",
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Local search provider calls by status",
		},
		[]string{"status"},
	)

	ProviderCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "cookiescraper",
			Subsystem: "provider",
			Name:      "call_duration_seconds",
			Help:      "Local search provider call duration",
			Buckets:   prometheus.DefBuckets,
		},
	)

	ScrapesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cookiescraper",
			Subsystem: "scraper",
			Name:      "pages_total",
			Help:      "Detail pages scraped by outcome",
		},
		[]string{"outcome"},
	)
)

func ObserveProviderCall(status string, d time.Duration) {
	ProviderCallsTotal.WithLabelValues(status).Inc()
	ProviderCallDuration.Observe(d.Seconds())
}

func ObserveSearch(method, outcome string, d time.Duration) {
	SearchesTotal.WithLabelValues(method, outcome).Inc()
	SearchDuration.WithLabelValues(method).Observe(d.Seconds())
}

func ObserveScrape(outcome string) {
	ScrapesTotal.WithLabelValues(outcome).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
