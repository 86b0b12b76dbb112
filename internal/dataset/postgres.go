package dataset

import (
	"context"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"

	"github.com/temcen/cinematch/pkg/models"
)

// Querier is the subset of *pgxpool.Pool the PostgreSQL sources need.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRatings reads ratings from a table with user_id, movie_id and
// rating columns.
type PostgresRatings struct {
	DB    Querier
	Table string
}

func (s PostgresRatings) Name() string { return "postgres:" + s.Table }

func (s PostgresRatings) ScanRatings(ctx context.Context, fn func(Rating)) (int, error) {
	query := fmt.Sprintf(
		"SELECT user_id, movie_id, rating FROM %s WHERE rating IS NOT NULL ORDER BY user_id, movie_id",
		pgx.Identifier{s.Table}.Sanitize(),
	)

	rows, err := s.DB.Query(ctx, query)
	if err != nil {
		return 0, integrityError(s.Name(), "cannot query ratings", err)
	}
	defer rows.Close()

	skipped := 0
	for rows.Next() {
		var (
			userID, movieID int64
			value           float64
		)
		if err := rows.Scan(&userID, &movieID, &value); err != nil {
			return skipped, integrityError(s.Name(), "cannot scan rating row", err)
		}
		if math.IsNaN(value) {
			skipped++
			continue
		}
		fn(Rating{UserID: int(userID), ItemID: int(movieID), Value: value})
	}
	if err := rows.Err(); err != nil {
		return skipped, integrityError(s.Name(), "cannot read ratings", err)
	}
	return skipped, nil
}

// PostgresMovies reads metadata from a table with movie_id, title, year,
// genres and poster_url columns.
type PostgresMovies struct {
	DB    Querier
	Table string
}

func (s PostgresMovies) Name() string { return "postgres:" + s.Table }

func (s PostgresMovies) ReadMovies(ctx context.Context) ([]models.Movie, int, error) {
	query := fmt.Sprintf(
		`SELECT movie_id, COALESCE(title, ''), COALESCE(year, ''), COALESCE(genres, ''), COALESCE(poster_url, '')
		FROM %s ORDER BY movie_id`,
		pgx.Identifier{s.Table}.Sanitize(),
	)

	rows, err := s.DB.Query(ctx, query)
	if err != nil {
		return nil, 0, integrityError(s.Name(), "cannot query movies", err)
	}
	defer rows.Close()

	var movies []models.Movie
	for rows.Next() {
		var (
			id int64
			m  models.Movie
		)
		if err := rows.Scan(&id, &m.Title, &m.Year, &m.Genres, &m.PosterURL); err != nil {
			return nil, 0, integrityError(s.Name(), "cannot scan movie row", err)
		}
		m.ID = int(id)
		movies = append(movies, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, integrityError(s.Name(), "cannot read movies", err)
	}
	return movies, 0, nil
}
