package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	providerReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfchat",
			Name:      "provider_requests_total",
			Help:      "Total inference requests by provider, model, mode and result",
		},
		[]string{"provider", "model", "mode", "result"},
	)

	providerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pdfchat",
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of inference requests by provider and model",
			Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"provider", "model"},
	)

	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfchat",
			Name:      "chat_turns_total",
			Help:      "Chat loop iterations by outcome (generated, loaded, load_failed, substitution_failed, parse_failed, skipped)",
		},
		[]string{"outcome"},
	)

	documentsLoaded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pdfchat",
			Name:      "documents_loaded_total",
			Help:      "Documents loaded by text source (extracted, cache)",
		},
		[]string{"source"},
	)

	documentChars = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pdfchat",
			Name:      "document_chars",
			Help:      "Size of extracted document text in characters",
			Buckets:   prometheus.ExponentialBuckets(1000, 4, 8),
		},
	)
)

var registerOnce sync.Once

// Init registers collectors. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(providerReqs, providerLatency, turnsTotal, documentsLoaded, documentChars)
	})
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveProvider(provider, model, mode, result string, dur time.Duration) {
	providerReqs.WithLabelValues(provider, model, mode, result).Inc()
	providerLatency.WithLabelValues(provider, model).Observe(dur.Seconds())
}

func IncTurn(outcome string) { turnsTotal.WithLabelValues(outcome).Inc() }

func ObserveDocument(source string, chars int) {
	documentsLoaded.WithLabelValues(source).Inc()
	documentChars.Observe(float64(chars))
}
