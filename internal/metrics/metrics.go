// Package metrics defines the Prometheus collectors exported at /metrics.
// All methods are safe to call on a nil *Metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "cinematch"

// Catalog cache results.
const (
	CacheHit    = "hit"
	CacheMiss   = "miss"
	CacheShared = "shared"
	CacheRemote = "remote"
)

type Metrics struct {
	// Recommendation metrics
	recommendDuration *prometheus.HistogramVec
	recommendRequests *prometheus.CounterVec

	// Catalog metrics
	catalogQueries      *prometheus.CounterVec
	catalogCacheEntries prometheus.Gauge

	// Dataset metrics
	datasetSize *prometheus.GaugeVec

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	eventsPublished *prometheus.CounterVec
}

// New registers all collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		recommendDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommendation_duration_seconds",
			Help:      "Time spent scoring and ranking one recommendation request",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		}, []string{"strategy"}),

		recommendRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendation_requests_total",
			Help:      "Total number of recommendation requests by outcome",
		}, []string{"strategy", "outcome"}),

		catalogQueries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_queries_total",
			Help:      "Total number of catalog queries by cache result",
		}, []string{"cache"}),

		catalogCacheEntries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_cache_entries",
			Help:      "Number of pages held in the catalog query cache",
		}),

		datasetSize: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_size",
			Help:      "Size of the loaded dataset by dimension",
		}, []string{"dimension"}),

		httpRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status"}),

		httpRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "endpoint"}),

		eventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of recommendation events sent to Kafka by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveRecommendation(strategy, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.recommendRequests.WithLabelValues(strategy, outcome).Inc()
	if outcome == "ok" {
		m.recommendDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) CatalogQuery(result string) {
	if m == nil {
		return
	}
	m.catalogQueries.WithLabelValues(result).Inc()
}

func (m *Metrics) SetCatalogCacheEntries(n int) {
	if m == nil {
		return
	}
	m.catalogCacheEntries.Set(float64(n))
}

// SetDatasetSize records one dimension such as "users" or "ratings".
func (m *Metrics) SetDatasetSize(dimension string, n int) {
	if m == nil {
		return
	}
	m.datasetSize.WithLabelValues(dimension).Set(float64(n))
}

func (m *Metrics) ObserveHTTP(method, endpoint string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}

func (m *Metrics) EventPublished(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.eventsPublished.WithLabelValues(result).Inc()
}
