// Package recommender ranks catalog items for a cold-start user from a
// handful of explicit ratings.
package recommender

import (
	"math"

	"github.com/temcen/cinematch/internal/matrix"
	"github.com/temcen/cinematch/pkg/models"
)

const (
	StrategySimilarity = "similarity"
	StrategyLatent     = "latent"

	DefaultMinRated = 6
	DefaultTopN     = 10
)

// ScoreOptions controls a single scoring call.
type ScoreOptions struct {
	// ExcludeRated sets the score of every rated, known item to -Inf.
	ExcludeRated bool
	// MinRated is the minimum number of input ratings. Zero selects DefaultMinRated.
	MinRated int
}

// Scorer produces one score per matrix column for an ad-hoc rating vector.
// Implementations are safe for concurrent use.
type Scorer interface {
	Name() string
	Score(ratings []models.RatingInput, opts ScoreOptions) ([]float64, error)
}

type ratedItem struct {
	index int
	value float64
}

func checkInput(ratings []models.RatingInput, minRated int) error {
	if minRated <= 0 {
		minRated = DefaultMinRated
	}
	if len(ratings) < minRated {
		return &InsufficientInputError{Got: len(ratings), Required: minRated}
	}
	return nil
}

// knownItems maps input ratings onto matrix columns, dropping unknown ids.
func knownItems(m *matrix.Interaction, ratings []models.RatingInput) []ratedItem {
	items := make([]ratedItem, 0, len(ratings))
	for _, r := range ratings {
		idx, ok := m.ItemIndex(r.MovieID)
		if !ok {
			continue
		}
		items = append(items, ratedItem{index: idx, value: r.Rating})
	}
	return items
}

func excludeRated(scores []float64, items []ratedItem) {
	for _, it := range items {
		scores[it.index] = math.Inf(-1)
	}
}
