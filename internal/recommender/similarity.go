package recommender

import (
	"math"

	"github.com/temcen/cinematch/internal/matrix"
	"github.com/temcen/cinematch/pkg/models"
)

// SimilarityScorer scores items by the similarity-weighted average of the
// input ratings, using cosine similarity between item columns.
type SimilarityScorer struct {
	m *matrix.Interaction
}

func NewSimilarityScorer(m *matrix.Interaction) *SimilarityScorer {
	return &SimilarityScorer{m: m}
}

func (s *SimilarityScorer) Name() string { return StrategySimilarity }

func (s *SimilarityScorer) Score(ratings []models.RatingInput, opts ScoreOptions) ([]float64, error) {
	if err := checkInput(ratings, opts.MinRated); err != nil {
		return nil, err
	}

	_, items := s.m.Shape()
	num := make([]float64, items)
	den := make([]float64, items)
	dot := make([]float64, items)

	rated := knownItems(s.m, ratings)
	for _, it := range rated {
		s.similarities(it.index, dot)
		for j, sim := range dot {
			if sim == 0 {
				continue
			}
			num[j] += sim * it.value
			den[j] += math.Abs(sim)
		}
	}

	scores := make([]float64, items)
	for j := range scores {
		if den[j] != 0 {
			scores[j] = num[j] / den[j]
		}
	}
	if opts.ExcludeRated {
		excludeRated(scores, rated)
	}
	return scores, nil
}

// similarities writes the cosine similarity between column i and every
// column into dst. Zero-norm columns get 0.
func (s *SimilarityScorer) similarities(i int, dst []float64) {
	clear(dst)
	normI := s.m.ColumnNorm(i)
	if normI == 0 {
		return
	}

	col := s.m.Column(i)
	for k, u := range col.Indices {
		ru := col.Values[k]
		row := s.m.Row(u)
		for n, j := range row.Indices {
			dst[j] += ru * row.Values[n]
		}
	}

	for j, d := range dst {
		if d == 0 {
			continue
		}
		normJ := s.m.ColumnNorm(j)
		if normJ == 0 {
			dst[j] = 0
			continue
		}
		dst[j] = d / (normI * normJ)
	}
}
