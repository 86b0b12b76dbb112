package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/cinematch/internal/middleware"
	"github.com/temcen/cinematch/internal/recommender"
	"github.com/temcen/cinematch/internal/validation"
	"github.com/temcen/cinematch/pkg/models"
)

// Recommender ranks unrated items for an ad-hoc rating list.
type Recommender interface {
	Recommend(ctx context.Context, ratings []models.RatingInput, topN, minRated int) ([]models.Recommendation, error)
	Strategy() string
}

type RecommendationHandler struct {
	recommender Recommender
	validator   *validation.SchemaValidator
	responses   *middleware.ResponseValidator
	logger      *logrus.Logger
}

func NewRecommendationHandler(recommender Recommender, validator *validation.SchemaValidator, responses *middleware.ResponseValidator, logger *logrus.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		recommender: recommender,
		validator:   validator,
		responses:   responses,
		logger:      logger,
	}
}

// Recommend serves POST /api/recommend.
func (h *RecommendationHandler) Recommend(c *gin.Context) {
	var req models.RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.SendError(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", "Invalid request body format", map[string]any{
			"error": err.Error(),
		})
		return
	}

	if result := h.validator.ValidateStruct(req); !result.Valid {
		details := result.ToAPIError()["error"].(map[string]any)["details"].(map[string]any)
		middleware.SendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", details)
		return
	}

	recs, err := h.recommender.Recommend(c.Request.Context(), req.Ratings, 0, 0)
	if err != nil {
		var insufficient *recommender.InsufficientInputError
		if errors.As(err, &insufficient) {
			middleware.SendError(c, http.StatusUnprocessableEntity, "INSUFFICIENT_RATINGS", err.Error(), map[string]any{
				"got":      insufficient.Got,
				"required": insufficient.Required,
			})
			return
		}

		h.logger.WithError(err).WithField("ratings", len(req.Ratings)).Error("Failed to generate recommendations")
		middleware.SendError(c, http.StatusInternalServerError, "RECOMMENDATION_GENERATION_FAILED", "Failed to generate recommendations", nil)
		return
	}

	resp := models.RecommendResponse{
		Recommended: recs,
		Strategy:    h.recommender.Strategy(),
	}
	if err := h.responses.ValidateResponse(validation.RecommendResponse, resp); err != nil {
		h.logger.WithError(err).Warn("Recommendation response does not match its schema")
	}

	c.JSON(http.StatusOK, resp)
}
