package recommender

import (
	"errors"
	"math"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/cinematch/internal/dataset"
	"github.com/temcen/cinematch/internal/matrix"
	"github.com/temcen/cinematch/pkg/models"
)

const (
	itemA = 1
	itemB = 2
	itemC = 3
)

type itemTable map[int]models.CatalogItem

func (t itemTable) Item(id int) (models.CatalogItem, bool) {
	item, ok := t[id]
	return item, ok
}

func catalogFor(ids ...int) itemTable {
	t := itemTable{}
	for _, id := range ids {
		t[id] = models.CatalogItem{Movie: models.Movie{ID: id, Title: "movie", Year: "2000", Genres: "Drama"}}
	}
	return t
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// abcMatrix has A and B rated identically by the same users and C rated by
// a disjoint user, so sim(A,B) = 1 and sim(A,C) = 0.
func abcMatrix(t *testing.T) *matrix.Interaction {
	t.Helper()
	m, err := matrix.Build([]dataset.Rating{
		{UserID: 1, ItemID: itemA, Value: 5},
		{UserID: 1, ItemID: itemB, Value: 5},
		{UserID: 2, ItemID: itemA, Value: 3},
		{UserID: 2, ItemID: itemB, Value: 3},
		{UserID: 3, ItemID: itemC, Value: 4},
	})
	require.NoError(t, err)
	return m
}

func repeat(id int, rating float64, n int) []models.RatingInput {
	out := make([]models.RatingInput, n)
	for i := range out {
		out[i] = models.RatingInput{MovieID: id, Rating: rating}
	}
	return out
}

func TestSimilarityScorer_ABC(t *testing.T) {
	m := abcMatrix(t)
	scorer := NewSimilarityScorer(m)

	scores, err := scorer.Score(repeat(itemA, 5, DefaultMinRated), ScoreOptions{ExcludeRated: true})
	require.NoError(t, err)
	require.Len(t, scores, 3)

	assert.True(t, math.IsInf(scores[0], -1))
	assert.InDelta(t, 5.0, scores[1], 1e-12)
	assert.Equal(t, 0.0, scores[2])
	assert.False(t, math.IsNaN(scores[2]))
}

func TestSimilarityScorer_WeightedAverage(t *testing.T) {
	m := abcMatrix(t)
	scorer := NewSimilarityScorer(m)

	ratings := append(repeat(itemA, 4, 3), repeat(itemC, 2, 3)...)
	scores, err := scorer.Score(ratings, ScoreOptions{})
	require.NoError(t, err)

	// A and C are orthogonal: each contributes only to itself and to B via A.
	assert.InDelta(t, 4.0, scores[0], 1e-12)
	assert.InDelta(t, 4.0, scores[1], 1e-12)
	assert.InDelta(t, 2.0, scores[2], 1e-12)
}

func TestSimilarityScorer_UnknownItemsIgnored(t *testing.T) {
	m := abcMatrix(t)
	scorer := NewSimilarityScorer(m)

	scores, err := scorer.Score(repeat(999, 5, DefaultMinRated), ScoreOptions{ExcludeRated: true})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, scores)
}

func TestScorers_InsufficientInput(t *testing.T) {
	m := abcMatrix(t)
	latent, err := NewLatentFactorScorer(m, DefaultLatentConfig(), testLogger())
	require.NoError(t, err)

	for _, scorer := range []Scorer{NewSimilarityScorer(m), latent} {
		t.Run(scorer.Name(), func(t *testing.T) {
			_, err := scorer.Score(repeat(itemA, 5, 5), ScoreOptions{})
			require.Error(t, err)

			var insufficient *InsufficientInputError
			require.True(t, errors.As(err, &insufficient))
			assert.Equal(t, 5, insufficient.Got)
			assert.Equal(t, DefaultMinRated, insufficient.Required)
			assert.ErrorIs(t, err, ErrInsufficientInput)

			// Unknown items still count towards the minimum.
			_, err = scorer.Score(repeat(999, 5, 2), ScoreOptions{MinRated: 2})
			assert.NoError(t, err)
		})
	}
}

func TestNewScorer(t *testing.T) {
	m := abcMatrix(t)

	s, err := NewScorer(StrategySimilarity, m, DefaultLatentConfig(), testLogger())
	require.NoError(t, err)
	assert.Equal(t, StrategySimilarity, s.Name())

	s, err = NewScorer(StrategyLatent, m, DefaultLatentConfig(), testLogger())
	require.NoError(t, err)
	assert.Equal(t, StrategyLatent, s.Name())

	_, err = NewScorer("popularity", m, DefaultLatentConfig(), testLogger())
	assert.Error(t, err)
}
