package models

import (
	"time"

	"github.com/google/uuid"
)

// RatingInput is one explicit rating supplied by a cold-start user.
type RatingInput struct {
	MovieID int     `json:"movieId"`
	Rating  float64 `json:"rating" validate:"gte=0,lte=5"`
}

type RecommendRequest struct {
	Ratings []RatingInput `json:"ratings" validate:"required,dive"`
}

// Recommendation is a hydrated catalog item with the raw strategy score.
// Scores from different strategies are not comparable.
type Recommendation struct {
	CatalogItem
	Score float64 `json:"score"`
}

type RecommendResponse struct {
	Recommended []Recommendation `json:"recommended"`
	Strategy    string           `json:"strategy"`
}

// RecommendationEvent records one served recommendation list for offline evaluation.
type RecommendationEvent struct {
	EventID   uuid.UUID     `json:"event_id"`
	Strategy  string        `json:"strategy"`
	Ratings   []RatingInput `json:"ratings"`
	ItemIDs   []int         `json:"item_ids"`
	Scores    []float64     `json:"scores"`
	Timestamp time.Time     `json:"timestamp"`
}
