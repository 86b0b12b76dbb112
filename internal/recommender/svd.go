package recommender

import (
	"errors"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/temcen/cinematch/internal/matrix"
)

var (
	errFactorization = errors.New("recommender: SVD factorization failed")
	errNoSignal      = errors.New("recommender: interaction matrix has no nonzero singular values")
)

// rankTolerance is the relative singular value below which a direction is
// treated as part of the null space.
const rankTolerance = 1e-9

// randomizedSVD returns the top-k right singular vectors of the interaction
// matrix as an items x r matrix, following Halko, Martinsson and Tropp.
// r <= k: directions whose singular value is negligible next to the largest
// one are dropped, since their vectors are arbitrary. The projected problem
// is small (items x (k+oversampling)) and is solved densely.
func randomizedSVD(m *matrix.Interaction, k, oversampling, powerIters int, seed uint64) (*mat.Dense, error) {
	users, items := m.Shape()
	l := min(k+oversampling, users, items)

	rng := rand.New(rand.NewPCG(seed, seed))
	omega := mat.NewDense(items, l, nil)
	raw := omega.RawMatrix().Data
	for i := range raw {
		raw[i] = rng.NormFloat64()
	}

	q, err := orthonormalize(m.MulDense(omega))
	if err != nil {
		return nil, err
	}
	for range powerIters {
		z, err := orthonormalize(m.MulTransDense(q))
		if err != nil {
			return nil, err
		}
		if q, err = orthonormalize(m.MulDense(z)); err != nil {
			return nil, err
		}
	}

	// Bᵀ = Aᵀ Q. With Bᵀ = U Σ Wᵀ we get A ≈ (Q W) Σ Uᵀ, so U holds the
	// right singular vectors of A.
	bt := m.MulTransDense(q)
	var svd mat.SVD
	if !svd.Factorize(bt, mat.SVDThinU) {
		return nil, errFactorization
	}
	var u mat.Dense
	svd.UTo(&u)

	values := svd.Values(nil)
	if len(values) == 0 || values[0] <= 0 {
		return nil, errNoSignal
	}
	r := 0
	for r < k && r < len(values) && values[r] > values[0]*rankTolerance {
		r++
	}

	vk := mat.DenseCopyOf(u.Slice(0, items, 0, r))
	return vk, nil
}

// orthonormalize returns an orthonormal basis for the column space of a,
// taken from its thin left singular vectors.
func orthonormalize(a *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if !svd.Factorize(a, mat.SVDThinU) {
		return nil, errFactorization
	}
	var q mat.Dense
	svd.UTo(&q)
	return &q, nil
}
