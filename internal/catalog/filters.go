package catalog

import (
	"cmp"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/temcen/cinematch/pkg/models"
)

// olderThan is the exclusive upper bound of the "older" year filter.
const olderThan = 2000

// entry is a catalog item with its precomputed filter and sort keys.
type entry struct {
	item     models.CatalogItem
	titleKey string
	genreKey string
	year     int
	yearOK   bool
}

func newEntry(item models.CatalogItem) entry {
	fold := cases.Fold()
	year, ok := parseYear(item.Year)
	return entry{
		item:     item,
		titleKey: foldKey(fold, item.Title),
		genreKey: foldKey(fold, item.Genres),
		year:     year,
		yearOK:   ok,
	}
}

func foldKey(fold cases.Caser, s string) string {
	return norm.NFC.String(fold.String(norm.NFC.String(s)))
}

// parseYear accepts integer and decimal renderings ("1995", "1995.0").
func parseYear(s string) (int, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return int(math.Trunc(v)), true
}

type yearPredicate func(year int) bool

// parseYearFilter understands "YYYY", "older", ">=YYYY" and "<=YYYY".
// Any other expression matches nothing.
func parseYearFilter(expr string) yearPredicate {
	switch {
	case strings.EqualFold(expr, "older"):
		return func(y int) bool { return y < olderThan }
	case strings.HasPrefix(expr, ">="):
		if v, ok := parseFilterYear(expr[2:]); ok {
			return func(y int) bool { return y >= v }
		}
	case strings.HasPrefix(expr, "<="):
		if v, ok := parseFilterYear(expr[2:]); ok {
			return func(y int) bool { return y <= v }
		}
	default:
		if v, ok := parseFilterYear(expr); ok {
			return func(y int) bool { return y == v }
		}
	}
	return func(int) bool { return false }
}

func parseFilterYear(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 4 {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	v, err := strconv.Atoi(s)
	return v, err == nil
}

// filter returns the entries matching every non-empty criterion, in input
// order. The input slice is never modified.
func filter(entries []entry, q Query) []entry {
	fold := cases.Fold()
	var (
		search = foldKey(fold, q.Search)
		genre  = foldKey(fold, q.Genre)
		year   yearPredicate
	)
	if q.Year != "" {
		year = parseYearFilter(q.Year)
	}

	out := make([]entry, 0, len(entries))
	for _, e := range entries {
		if search != "" && !strings.Contains(e.titleKey, search) {
			continue
		}
		if genre != "" && !strings.Contains(e.genreKey, genre) {
			continue
		}
		if year != nil && (!e.yearOK || !year(e.year)) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func comparator(field string) func(a, b entry) int {
	switch field {
	case SortYear:
		return func(a, b entry) int { return cmp.Compare(a.sortYear(), b.sortYear()) }
	case SortTitle:
		return func(a, b entry) int { return strings.Compare(a.titleKey, b.titleKey) }
	default:
		return func(a, b entry) int { return cmp.Compare(a.item.AvgRating, b.item.AvgRating) }
	}
}

func (e entry) sortYear() int {
	if !e.yearOK {
		return 0
	}
	return e.year
}
