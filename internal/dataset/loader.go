package dataset

import (
	"context"
	"math"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/temcen/cinematch/pkg/models"
)

// Options caps the rating table. Zero means no cap.
type Options struct {
	MaxUsers int
	MaxItems int
}

// Stats summarises what was read and kept.
type Stats struct {
	RatingsRead    int `json:"ratings_read"`
	RatingsKept    int `json:"ratings_kept"`
	RatingsSkipped int `json:"ratings_skipped"`
	Users          int `json:"users"`
	Items          int `json:"items"`
	MoviesRead     int `json:"movies_read"`
	MoviesKept     int `json:"movies_kept"`
	MoviesSkipped  int `json:"movies_skipped"`
}

// Dataset is the cleaned and capped input of the engine. It is read-only
// after Load returns.
type Dataset struct {
	Ratings   []Rating
	Movies    []models.Movie
	AvgRating map[int]float64
	Stats     Stats

	movieIndex map[int]int
}

// Load reads both sources concurrently, caps the ratings by first-seen users
// and items, and drops invalid metadata rows.
func Load(ctx context.Context, ratings RatingSource, movies MovieSource, opts Options, logger *logrus.Logger) (*Dataset, error) {
	if ratings == nil {
		return nil, integrityError("ratings", "no source configured", nil)
	}
	if movies == nil {
		return nil, integrityError("movies", "no source configured", nil)
	}

	ds := &Dataset{}
	var (
		capper    = newCapper(opts)
		sums      = make(map[int]*ratingSum)
		keptUsers = make(map[int]struct{})
		rawRows   []models.Movie
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		skipped, err := ratings.ScanRatings(gctx, func(r Rating) {
			ds.Stats.RatingsRead++
			s, ok := sums[r.ItemID]
			if !ok {
				s = &ratingSum{}
				sums[r.ItemID] = s
			}
			s.total += r.Value
			s.count++
			if capper.keep(r) {
				ds.Ratings = append(ds.Ratings, r)
				keptUsers[r.UserID] = struct{}{}
			}
		})
		ds.Stats.RatingsSkipped = skipped
		return err
	})
	g.Go(func() error {
		rows, skipped, err := movies.ReadMovies(gctx)
		rawRows = rows
		ds.Stats.MoviesSkipped = skipped
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(ds.Ratings) == 0 {
		return nil, integrityError(ratings.Name(), "no ratings left after capping", nil)
	}

	ds.AvgRating = make(map[int]float64, len(sums))
	for id, s := range sums {
		ds.AvgRating[id] = round2(s.total / float64(s.count))
	}

	ds.Stats.MoviesRead = len(rawRows)
	ds.movieIndex = make(map[int]int, len(rawRows))
	for _, m := range rawRows {
		if !validMovie(m) {
			continue
		}
		if _, dup := ds.movieIndex[m.ID]; dup {
			continue
		}
		ds.movieIndex[m.ID] = len(ds.Movies)
		ds.Movies = append(ds.Movies, m)
	}

	ds.Stats.RatingsKept = len(ds.Ratings)
	ds.Stats.Users = len(keptUsers)
	ds.Stats.Items = len(capper.items)
	ds.Stats.MoviesKept = len(ds.Movies)

	if logger != nil {
		if ds.Stats.RatingsSkipped > 0 || ds.Stats.MoviesSkipped > 0 {
			logger.WithFields(logrus.Fields{
				"ratings_skipped": ds.Stats.RatingsSkipped,
				"movies_skipped":  ds.Stats.MoviesSkipped,
			}).Warn("Skipped malformed dataset rows")
		}
		logger.WithFields(logrus.Fields{
			"ratings": ds.Stats.RatingsKept,
			"users":   ds.Stats.Users,
			"items":   ds.Stats.Items,
			"movies":  ds.Stats.MoviesKept,
		}).Info("Dataset loaded")
	}

	return ds, nil
}

// Item returns the hydrated metadata for a movie id.
func (d *Dataset) Item(id int) (models.CatalogItem, bool) {
	i, ok := d.movieIndex[id]
	if !ok {
		return models.CatalogItem{}, false
	}
	return d.hydrate(d.Movies[i]), true
}

// CatalogItems returns every valid movie hydrated, in source order.
func (d *Dataset) CatalogItems() []models.CatalogItem {
	items := make([]models.CatalogItem, len(d.Movies))
	for i, m := range d.Movies {
		items[i] = d.hydrate(m)
	}
	return items
}

func (d *Dataset) hydrate(m models.Movie) models.CatalogItem {
	m.PosterURL = m.Poster()
	return models.CatalogItem{Movie: m, AvgRating: d.AvgRating[m.ID]}
}

type ratingSum struct {
	total float64
	count int
}

// capper keeps the first MaxUsers distinct users and, among their rows, the
// first MaxItems distinct items, both in source order.
type capper struct {
	opts  Options
	users map[int]struct{}
	items map[int]struct{}
}

func newCapper(opts Options) *capper {
	return &capper{
		opts:  opts,
		users: make(map[int]struct{}),
		items: make(map[int]struct{}),
	}
}

func (c *capper) keep(r Rating) bool {
	if _, ok := c.users[r.UserID]; !ok {
		if c.opts.MaxUsers > 0 && len(c.users) >= c.opts.MaxUsers {
			return false
		}
		c.users[r.UserID] = struct{}{}
	}
	if _, ok := c.items[r.ItemID]; !ok {
		if c.opts.MaxItems > 0 && len(c.items) >= c.opts.MaxItems {
			return false
		}
		c.items[r.ItemID] = struct{}{}
	}
	return true
}

func validMovie(m models.Movie) bool {
	return strings.TrimSpace(m.Title) != "" &&
		strings.TrimSpace(m.Year) != "" &&
		strings.TrimSpace(m.Genres) != "" &&
		strings.HasPrefix(m.PosterURL, "http")
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
