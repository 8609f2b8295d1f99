package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type APIMetrics struct {
	registry *prometheus.Registry

	retrieveTotal    *prometheus.CounterVec
	retrieveDuration *prometheus.HistogramVec
	retrieveInFlight prometheus.Gauge
	resultCount      prometheus.Histogram
}

func NewAPIMetrics(service string) *APIMetrics {
	registry := prometheus.NewRegistry()

	retrieveTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "api",
			Name:      "retrieve_total",
			Help:      "Retrieval requests by outcome.",
		},
		[]string{"service", "outcome"},
	)
	retrieveDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "api",
			Name:      "retrieve_duration_seconds",
			Help:      "Retrieval request duration in seconds by outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "outcome"},
	)
	retrieveInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docqa",
			Subsystem: "api",
			Name:      "retrieve_in_flight",
			Help:      "Number of in-flight retrieval requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	resultCount := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "api",
			Name:      "retrieve_result_count",
			Help:      "Number of results delivered per retrieval request.",
			Buckets:   []float64{0, 1, 3, 5, 10, 15, 20},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(retrieveTotal, retrieveDuration, retrieveInFlight, resultCount)

	return &APIMetrics{
		registry:         registry,
		retrieveTotal:    retrieveTotal,
		retrieveDuration: retrieveDuration,
		retrieveInFlight: retrieveInFlight,
		resultCount:      resultCount,
	}
}

func (m *APIMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *APIMetrics) StartRetrieve() {
	m.retrieveInFlight.Inc()
}

// FinishRetrieve records one finished retrieval. outcome is one of
// "delivered", "empty" or "error".
func (m *APIMetrics) FinishRetrieve(service, outcome string, duration time.Duration, results int) {
	m.retrieveInFlight.Dec()
	m.retrieveTotal.WithLabelValues(service, outcome).Inc()
	m.retrieveDuration.WithLabelValues(service, outcome).Observe(duration.Seconds())
	if outcome != "error" {
		m.resultCount.Observe(float64(results))
	}
}
