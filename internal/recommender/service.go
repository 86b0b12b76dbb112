package recommender

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/cinematch/internal/matrix"
	"github.com/temcen/cinematch/internal/metrics"
	"github.com/temcen/cinematch/pkg/models"
)

// ItemLookup hydrates an item id with its catalog metadata.
type ItemLookup interface {
	Item(id int) (models.CatalogItem, bool)
}

// EventPublisher receives every served recommendation list.
type EventPublisher interface {
	PublishRecommendation(ctx context.Context, event models.RecommendationEvent) error
}

// Service validates input, delegates scoring to the configured strategy and
// turns scores into a ranked, hydrated list.
type Service struct {
	m        *matrix.Interaction
	scorer   Scorer
	items    ItemLookup
	logger   *logrus.Logger
	metrics  *metrics.Metrics
	events   EventPublisher
	topN     int
	minRated int
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

// WithDefaults overrides the topN and minRated used when a call passes zero.
func WithDefaults(topN, minRated int) Option {
	return func(s *Service) {
		if topN > 0 {
			s.topN = topN
		}
		if minRated > 0 {
			s.minRated = minRated
		}
	}
}

func NewService(m *matrix.Interaction, scorer Scorer, items ItemLookup, logger *logrus.Logger, opts ...Option) *Service {
	s := &Service{
		m:        m,
		scorer:   scorer,
		items:    items,
		logger:   logger,
		topN:     DefaultTopN,
		minRated: DefaultMinRated,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewScorer builds the scorer for a strategy name.
func NewScorer(strategy string, m *matrix.Interaction, cfg LatentConfig, logger *logrus.Logger) (Scorer, error) {
	switch strategy {
	case StrategySimilarity:
		return NewSimilarityScorer(m), nil
	case StrategyLatent:
		return NewLatentFactorScorer(m, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown recommendation strategy %q", strategy)
	}
}

func (s *Service) Strategy() string { return s.scorer.Name() }

// Recommend returns at most topN unrated items ordered by descending score.
// Zero topN or minRated selects the service defaults.
func (s *Service) Recommend(ctx context.Context, ratings []models.RatingInput, topN, minRated int) ([]models.Recommendation, error) {
	start := time.Now()
	if topN <= 0 {
		topN = s.topN
	}
	if minRated <= 0 {
		minRated = s.minRated
	}

	scores, err := s.scorer.Score(ratings, ScoreOptions{ExcludeRated: true, MinRated: minRated})
	if err != nil {
		outcome := "error"
		if errors.Is(err, ErrInsufficientInput) {
			outcome = "insufficient_input"
		}
		s.metrics.ObserveRecommendation(s.Strategy(), outcome, time.Since(start))
		return nil, err
	}

	ranked := rank(scores, topN)
	recs := make([]models.Recommendation, 0, len(ranked))
	for _, idx := range ranked {
		item, ok := s.items.Item(s.m.ItemID(idx))
		if !ok {
			continue
		}
		recs = append(recs, models.Recommendation{CatalogItem: item, Score: scores[idx]})
	}

	elapsed := time.Since(start)
	s.metrics.ObserveRecommendation(s.Strategy(), "ok", elapsed)
	s.logger.WithFields(logrus.Fields{
		"strategy": s.Strategy(),
		"ratings":  len(ratings),
		"results":  len(recs),
		"duration": elapsed,
	}).Debug("Recommendations generated")

	s.publish(ctx, ratings, recs)
	return recs, nil
}

func (s *Service) publish(ctx context.Context, ratings []models.RatingInput, recs []models.Recommendation) {
	if s.events == nil {
		return
	}
	event := models.RecommendationEvent{
		EventID:   uuid.New(),
		Strategy:  s.Strategy(),
		Ratings:   ratings,
		ItemIDs:   make([]int, len(recs)),
		Scores:    make([]float64, len(recs)),
		Timestamp: time.Now().UTC(),
	}
	for i, r := range recs {
		event.ItemIDs[i] = r.ID
		event.Scores[i] = r.Score
	}
	if err := s.events.PublishRecommendation(ctx, event); err != nil {
		s.logger.WithError(err).Warn("Failed to publish recommendation event")
	}
}

// rank returns the indices of the topN highest finite or +Inf scores. Ties
// keep index order.
func rank(scores []float64, topN int) []int {
	idx := make([]int, 0, len(scores))
	for i, v := range scores {
		if math.IsNaN(v) || math.IsInf(v, -1) {
			continue
		}
		idx = append(idx, i)
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return cmp.Compare(scores[b], scores[a])
	})
	if len(idx) > topN {
		idx = idx[:topN]
	}
	return idx
}
