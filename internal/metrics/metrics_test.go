package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRecommendation("similarity", "ok", 20*time.Millisecond)
	m.ObserveRecommendation("similarity", "insufficient_input", 0)
	m.CatalogQuery(CacheHit)
	m.CatalogQuery(CacheHit)
	m.CatalogQuery(CacheMiss)
	m.SetCatalogCacheEntries(7)
	m.SetDatasetSize("users", 610)
	m.EventPublished(nil)
	m.EventPublished(errors.New("broker down"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.recommendRequests.WithLabelValues("similarity", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recommendRequests.WithLabelValues("similarity", "insufficient_input")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.catalogQueries.WithLabelValues(CacheHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.catalogQueries.WithLabelValues(CacheMiss)))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.catalogCacheEntries))
	assert.Equal(t, 610.0, testutil.ToFloat64(m.datasetSize.WithLabelValues("users")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsPublished.WithLabelValues("error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.recommendDuration))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRecommendation("latent", "ok", time.Second)
		m.CatalogQuery(CacheMiss)
		m.SetCatalogCacheEntries(1)
		m.SetDatasetSize("items", 1)
		m.ObserveHTTP("GET", "/api/movies", 200, time.Millisecond)
		m.EventPublished(nil)
	})
}

func TestNew_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
