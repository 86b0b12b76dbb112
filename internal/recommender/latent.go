package recommender

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/temcen/cinematch/internal/matrix"
	"github.com/temcen/cinematch/pkg/models"
)

// LatentConfig parameterises the truncated SVD.
type LatentConfig struct {
	Rank            int    `mapstructure:"rank"`
	Oversampling    int    `mapstructure:"oversampling"`
	PowerIterations int    `mapstructure:"power_iterations"`
	Seed            uint64 `mapstructure:"seed"`
}

func DefaultLatentConfig() LatentConfig {
	return LatentConfig{
		Rank:            50,
		Oversampling:    10,
		PowerIterations: 5,
		Seed:            42,
	}
}

// LatentFactorScorer scores items by projecting the input ratings onto item
// embeddings from a rank-k truncated SVD of the interaction matrix.
type LatentFactorScorer struct {
	m           *matrix.Interaction
	rank        int
	itemFactors *mat.Dense
	userFactors *mat.Dense
}

// NewLatentFactorScorer factorizes the matrix once. The requested rank is
// clamped to min(users, items) and then to the numerical rank of the matrix.
func NewLatentFactorScorer(m *matrix.Interaction, cfg LatentConfig, logger *logrus.Logger) (*LatentFactorScorer, error) {
	if cfg.Rank <= 0 {
		return nil, fmt.Errorf("latent rank must be positive, got %d", cfg.Rank)
	}
	if cfg.Oversampling < 0 || cfg.PowerIterations < 0 {
		return nil, fmt.Errorf("oversampling and power iterations must not be negative")
	}

	users, items := m.Shape()
	requested := min(cfg.Rank, users, items)

	itemFactors, err := randomizedSVD(m, requested, cfg.Oversampling, cfg.PowerIterations, cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("failed to factorize interaction matrix: %w", err)
	}
	_, rank := itemFactors.Dims()

	s := &LatentFactorScorer{
		m:           m,
		rank:        rank,
		itemFactors: itemFactors,
		userFactors: m.MulDense(itemFactors),
	}

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"rank":           rank,
			"requested_rank": requested,
			"users":          users,
			"items":          items,
		}).Info("Latent factor model ready")
	}
	return s, nil
}

func (s *LatentFactorScorer) Name() string { return StrategyLatent }

func (s *LatentFactorScorer) Rank() int { return s.rank }

// ItemFactors is items x rank; row i embeds matrix column i.
func (s *LatentFactorScorer) ItemFactors() mat.Matrix { return s.itemFactors }

// UserFactors is users x rank.
func (s *LatentFactorScorer) UserFactors() mat.Matrix { return s.userFactors }

func (s *LatentFactorScorer) Score(ratings []models.RatingInput, opts ScoreOptions) ([]float64, error) {
	if err := checkInput(ratings, opts.MinRated); err != nil {
		return nil, err
	}

	rated := knownItems(s.m, ratings)
	profile := make([]float64, s.rank)
	for _, it := range rated {
		floats.AddScaled(profile, it.value, s.itemFactors.RawRowView(it.index))
	}

	_, items := s.m.Shape()
	predicted := mat.NewVecDense(items, nil)
	predicted.MulVec(s.itemFactors, mat.NewVecDense(s.rank, profile))

	scores := make([]float64, items)
	copy(scores, predicted.RawVector().Data)
	if opts.ExcludeRated {
		excludeRated(scores, rated)
	}
	return scores, nil
}
