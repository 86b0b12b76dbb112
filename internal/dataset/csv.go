package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/temcen/cinematch/pkg/models"
)

var (
	ratingColumns = []string{"userId", "movieId", "rating"}
	movieColumns  = []string{"movieId", "title", "year", "genres", "posterUrl"}
)

// CSVRatings reads a `userId,movieId,rating[,timestamp]` file.
type CSVRatings struct {
	Path string
}

func (s CSVRatings) Name() string { return s.Path }

func (s CSVRatings) ScanRatings(ctx context.Context, fn func(Rating)) (int, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return 0, integrityError(s.Path, "cannot open ratings", err)
	}
	defer f.Close()
	return scanRatingsCSV(ctx, s.Path, f, fn)
}

// CSVMovies reads a `movieId,title,year,genres,posterUrl` file.
type CSVMovies struct {
	Path string
}

func (s CSVMovies) Name() string { return s.Path }

func (s CSVMovies) ReadMovies(ctx context.Context) ([]models.Movie, int, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, 0, integrityError(s.Path, "cannot open movies", err)
	}
	defer f.Close()
	return readMoviesCSV(ctx, s.Path, f)
}

func scanRatingsCSV(ctx context.Context, name string, r io.Reader, fn func(Rating)) (int, error) {
	reader, cols, err := openCSV(name, r, ratingColumns)
	if err != nil {
		return 0, err
	}

	skipped := 0
	for n := 0; ; n++ {
		if n%65536 == 0 {
			if err := ctx.Err(); err != nil {
				return skipped, err
			}
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skipped++
				continue
			}
			return skipped, integrityError(name, "cannot read ratings", err)
		}

		rating, ok := parseRating(record, cols)
		if !ok {
			skipped++
			continue
		}
		fn(rating)
	}
	return skipped, nil
}

func readMoviesCSV(ctx context.Context, name string, r io.Reader) ([]models.Movie, int, error) {
	reader, cols, err := openCSV(name, r, movieColumns)
	if err != nil {
		return nil, 0, err
	}

	var movies []models.Movie
	skipped := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, skipped, err
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				skipped++
				continue
			}
			return nil, skipped, integrityError(name, "cannot read movies", err)
		}

		id, err := strconv.Atoi(strings.TrimSpace(field(record, cols[0])))
		if err != nil {
			skipped++
			continue
		}
		movies = append(movies, models.Movie{
			ID:        id,
			Title:     field(record, cols[1]),
			Year:      field(record, cols[2]),
			Genres:    field(record, cols[3]),
			PosterURL: field(record, cols[4]),
		})
	}
	return movies, skipped, nil
}

// openCSV reads the header row and resolves the required columns to their
// positions. Header matching ignores case and surrounding whitespace.
func openCSV(name string, r io.Reader, required []string) (*csv.Reader, []int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, integrityError(name, "empty file", nil)
		}
		return nil, nil, integrityError(name, "cannot read header", err)
	}

	positions := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		positions[strings.ToLower(h)] = i
	}

	cols := make([]int, len(required))
	var missing []string
	for i, name := range required {
		pos, ok := positions[strings.ToLower(name)]
		if !ok {
			missing = append(missing, name)
			continue
		}
		cols[i] = pos
	}
	if len(missing) > 0 {
		return nil, nil, integrityError(name, fmt.Sprintf("missing required columns %v", missing), nil)
	}
	return reader, cols, nil
}

func parseRating(record []string, cols []int) (Rating, bool) {
	user, err := strconv.Atoi(strings.TrimSpace(field(record, cols[0])))
	if err != nil {
		return Rating{}, false
	}
	item, err := strconv.Atoi(strings.TrimSpace(field(record, cols[1])))
	if err != nil {
		return Rating{}, false
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(field(record, cols[2])), 64)
	if err != nil || math.IsNaN(value) {
		return Rating{}, false
	}
	return Rating{UserID: user, ItemID: item, Value: value}, true
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return record[i]
}
