package models

// PlaceholderPosterURL is served for a movie whose poster is unknown.
const PlaceholderPosterURL = "/static/posters/placeholder.jpg"

// Movie is one cleaned row of the movie metadata table.
type Movie struct {
	ID        int    `json:"movieId" db:"movie_id"`
	Title     string `json:"title" db:"title"`
	Year      string `json:"year" db:"year"`
	Genres    string `json:"genres" db:"genres"`
	PosterURL string `json:"posterUrl" db:"poster_url"`
}

// CatalogItem is a movie hydrated with its historical average rating.
type CatalogItem struct {
	Movie
	AvgRating float64 `json:"avgRating"`
}

// Poster returns the poster URL, falling back to the placeholder.
func (m Movie) Poster() string {
	if m.PosterURL == "" {
		return PlaceholderPosterURL
	}
	return m.PosterURL
}
