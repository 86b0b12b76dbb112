// Package catalog answers filtered, sorted and paginated catalog queries over
// the hydrated item table, memoizing results in a bounded LRU.
package catalog

import (
	"context"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/temcen/cinematch/internal/cache"
	"github.com/temcen/cinematch/internal/metrics"
	"github.com/temcen/cinematch/pkg/models"
)

// Source supplies the hydrated catalog in a stable order.
type Source interface {
	CatalogItems() []models.CatalogItem
}

// PageStore is an optional second cache level shared between processes.
type PageStore interface {
	Get(ctx context.Context, key string) (Page, bool, error)
	Set(ctx context.Context, key string, page Page) error
}

type Config struct {
	CacheSize  int    `mapstructure:"cache_size"`
	SampleSeed uint64 `mapstructure:"sample_seed"`
}

func DefaultConfig() Config {
	return Config{CacheSize: cache.DefaultCapacity, SampleSeed: 42}
}

type Option func(*Engine)

func WithPageStore(store PageStore) Option {
	return func(e *Engine) { e.pages = store }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

type sample struct {
	once    sync.Once
	entries []entry
}

// Engine is safe for concurrent use. The full catalog and every sample size
// are built at most once; query results live in a bounded LRU.
type Engine struct {
	source  Source
	cfg     Config
	logger  *logrus.Logger
	metrics *metrics.Metrics
	pages   PageStore

	fullOnce sync.Once
	full     []entry

	samplesMu sync.Mutex
	samples   map[int]*sample

	results *cache.LRU[string, Page]
	group   singleflight.Group
}

func NewEngine(source Source, cfg Config, logger *logrus.Logger, opts ...Option) *Engine {
	e := &Engine{
		source:  source,
		cfg:     cfg,
		logger:  logger,
		samples: make(map[int]*sample),
		results: cache.NewLRU[string, Page](cfg.CacheSize),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Warm builds the full catalog ahead of the first query.
func (e *Engine) Warm() int {
	return len(e.catalog())
}

// Query returns one page of the filtered and sorted candidate set.
func (e *Engine) Query(ctx context.Context, q Query) (Page, error) {
	q = q.normalize()
	size, err := ParseSample(q.Sample)
	if err != nil {
		return Page{}, err
	}

	key := q.cacheKey()
	if p, ok := e.results.Get(key); ok {
		e.metrics.CatalogQuery(metrics.CacheHit)
		return clonePage(p), nil
	}

	v, _, shared := e.group.Do(key, func() (any, error) {
		if p, ok := e.remoteGet(ctx, key); ok {
			e.results.Add(key, p)
			e.metrics.CatalogQuery(metrics.CacheRemote)
			return p, nil
		}

		p := e.compute(q, size)
		e.results.Add(key, p)
		e.metrics.CatalogQuery(metrics.CacheMiss)
		e.metrics.SetCatalogCacheEntries(e.results.Len())
		e.remoteSet(ctx, key, p)
		return p, nil
	})
	if shared {
		e.metrics.CatalogQuery(metrics.CacheShared)
	}
	return clonePage(v.(Page)), nil
}

// Sample returns the deterministic sample of the given size. Sizes larger
// than the catalog return the whole catalog in sampled order.
func (e *Engine) Sample(size int) []models.CatalogItem {
	entries := e.sample(size)
	items := make([]models.CatalogItem, len(entries))
	for i, en := range entries {
		items[i] = en.item
	}
	return items
}

func (e *Engine) CacheStats() cache.Stats {
	return e.results.Stats()
}

func (e *Engine) compute(q Query, size int) Page {
	candidates := e.catalog()
	if size > 0 {
		candidates = e.sample(size)
	}

	matched := filter(candidates, q)
	compare := comparator(q.Sort)
	if q.Order == OrderDesc {
		slices.SortStableFunc(matched, func(a, b entry) int { return compare(b, a) })
	} else {
		slices.SortStableFunc(matched, compare)
	}

	total := len(matched)
	page := Page{
		Total:      total,
		Page:       q.Page,
		PerPage:    q.PerPage,
		TotalPages: totalPages(total, q.PerPage),
		Items:      []models.CatalogItem{},
	}
	start := (q.Page - 1) * q.PerPage
	if start >= total {
		return page
	}
	end := min(start+q.PerPage, total)
	page.Items = make([]models.CatalogItem, 0, end-start)
	for _, en := range matched[start:end] {
		page.Items = append(page.Items, en.item)
	}
	return page
}

func (e *Engine) catalog() []entry {
	e.fullOnce.Do(func() {
		items := e.source.CatalogItems()
		e.full = make([]entry, len(items))
		for i, item := range items {
			e.full[i] = newEntry(item)
		}
		if e.logger != nil {
			e.logger.WithField("movies", len(e.full)).Info("Catalog cached")
		}
	})
	return e.full
}

func (e *Engine) sample(size int) []entry {
	full := e.catalog()
	size = min(size, len(full))

	e.samplesMu.Lock()
	s, ok := e.samples[size]
	if !ok {
		s = &sample{}
		e.samples[size] = s
	}
	e.samplesMu.Unlock()

	s.once.Do(func() {
		if size <= 0 {
			return
		}
		idxs := make([]int, size)
		sampleuv.WithoutReplacement(idxs, len(full), rand.NewPCG(e.cfg.SampleSeed, e.cfg.SampleSeed))
		s.entries = make([]entry, size)
		for i, idx := range idxs {
			s.entries[i] = full[idx]
		}
	})
	return s.entries
}

func (e *Engine) remoteGet(ctx context.Context, key string) (Page, bool) {
	if e.pages == nil {
		return Page{}, false
	}
	p, found, err := e.pages.Get(ctx, key)
	if err != nil {
		e.logger.WithError(err).Warn("Catalog page store read failed")
		return Page{}, false
	}
	return p, found
}

func (e *Engine) remoteSet(ctx context.Context, key string, p Page) {
	if e.pages == nil {
		return
	}
	if err := e.pages.Set(ctx, key, p); err != nil {
		e.logger.WithError(err).Warn("Catalog page store write failed")
	}
}

func clonePage(p Page) Page {
	p.Items = slices.Clone(p.Items)
	if p.Items == nil {
		p.Items = []models.CatalogItem{}
	}
	return p
}
