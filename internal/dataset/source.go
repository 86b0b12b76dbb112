package dataset

import (
	"context"

	"github.com/temcen/cinematch/pkg/models"
)

// Rating is one historical (user, item, value) interaction.
type Rating struct {
	UserID int
	ItemID int
	Value  float64
}

// RatingSource streams ratings in source order. It returns the number of
// malformed rows that were skipped.
type RatingSource interface {
	Name() string
	ScanRatings(ctx context.Context, fn func(Rating)) (skipped int, err error)
}

// MovieSource returns the raw metadata rows in source order together with the
// number of malformed rows that were skipped. Validity filtering happens in Load.
type MovieSource interface {
	Name() string
	ReadMovies(ctx context.Context) (movies []models.Movie, skipped int, err error)
}
