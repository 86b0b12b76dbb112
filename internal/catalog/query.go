package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/temcen/cinematch/pkg/models"
)

const (
	SampleAll         = "all"
	DefaultSampleSize = 150

	DefaultPerPage = 30
	MaxPerPage     = 200

	SortRating = "rating"
	SortYear   = "year"
	SortTitle  = "title"

	OrderAsc  = "asc"
	OrderDesc = "desc"
)

var ErrInvalidSample = errors.New("invalid sample selector")

// Query selects one page of the catalog. Zero values select the defaults:
// the full catalog, no filters, rating order ascending, page 1, 30 per page.
type Query struct {
	Sample  string
	Search  string
	Genre   string
	Year    string
	Sort    string
	Order   string
	Page    int
	PerPage int
}

// Page is one page of matching items plus the size of the whole match set.
type Page struct {
	Items      []models.CatalogItem `json:"items"`
	Total      int                  `json:"total"`
	Page       int                  `json:"page"`
	PerPage    int                  `json:"per_page"`
	TotalPages int                  `json:"total_pages"`
}

// ParseSample returns 0 for the full catalog or the requested sample size.
func ParseSample(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, SampleAll) {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSample, s)
	}
	return n, nil
}

func (q Query) normalize() Query {
	q.Sample = strings.ToLower(strings.TrimSpace(q.Sample))
	if q.Sample == "" {
		q.Sample = SampleAll
	}
	q.Search = strings.TrimSpace(q.Search)
	q.Genre = strings.TrimSpace(q.Genre)
	q.Year = strings.TrimSpace(q.Year)

	switch s := strings.ToLower(strings.TrimSpace(q.Sort)); s {
	case SortYear, SortTitle:
		q.Sort = s
	default:
		q.Sort = SortRating
	}
	if strings.EqualFold(strings.TrimSpace(q.Order), OrderDesc) {
		q.Order = OrderDesc
	} else {
		q.Order = OrderAsc
	}

	if q.Page < 1 {
		q.Page = 1
	}
	switch {
	case q.PerPage == 0:
		q.PerPage = DefaultPerPage
	case q.PerPage < 1:
		q.PerPage = 1
	case q.PerPage > MaxPerPage:
		q.PerPage = MaxPerPage
	}
	return q
}

// cacheKey must only be called on a normalized query.
func (q Query) cacheKey() string {
	return fmt.Sprintf("%s|%q|%q|%q|%s|%s|%d|%d",
		q.Sample, q.Search, q.Genre, q.Year, q.Sort, q.Order, q.Page, q.PerPage)
}

func totalPages(total, perPage int) int {
	return (total + perPage - 1) / perPage
}
