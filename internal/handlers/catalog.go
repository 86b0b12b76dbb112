package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/cinematch/internal/catalog"
	"github.com/temcen/cinematch/internal/middleware"
	"github.com/temcen/cinematch/internal/validation"
	"github.com/temcen/cinematch/pkg/models"
)

// CatalogQuerier answers one catalog page query.
type CatalogQuerier interface {
	Query(ctx context.Context, q catalog.Query) (catalog.Page, error)
}

type CatalogHandler struct {
	engine    CatalogQuerier
	responses *middleware.ResponseValidator
	logger    *logrus.Logger
}

func NewCatalogHandler(engine CatalogQuerier, responses *middleware.ResponseValidator, logger *logrus.Logger) *CatalogHandler {
	return &CatalogHandler{
		engine:    engine,
		responses: responses,
		logger:    logger,
	}
}

// List serves GET /api/movies.
func (h *CatalogHandler) List(c *gin.Context) {
	start := time.Now()

	q := catalog.Query{
		Sample:  c.DefaultQuery("sample", catalog.SampleAll),
		Search:  c.Query("search"),
		Genre:   c.Query("genre"),
		Year:    c.Query("year"),
		Sort:    c.DefaultQuery("sort", catalog.SortRating),
		Order:   c.DefaultQuery("order", catalog.OrderDesc),
		Page:    queryInt(c, "page", 1),
		PerPage: queryInt(c, "per_page", catalog.DefaultPerPage),
	}

	page, err := h.engine.Query(c.Request.Context(), q)
	if err != nil {
		if errors.Is(err, catalog.ErrInvalidSample) {
			middleware.SendError(c, http.StatusBadRequest, "INVALID_SAMPLE", "Sample must be 'all' or a positive integer", map[string]any{
				"sample": q.Sample,
			})
			return
		}
		h.logger.WithError(err).Error("Failed to query catalog")
		middleware.SendError(c, http.StatusInternalServerError, "CATALOG_QUERY_FAILED", "Failed to query catalog", nil)
		return
	}

	resp := models.CatalogPageResponse{
		Movies:     page.Items,
		Page:       page.Page,
		PerPage:    page.PerPage,
		Total:      page.Total,
		TotalPages: page.TotalPages,
		ElapsedMS:  float64(time.Since(start).Microseconds()) / 1000,
	}
	if err := h.responses.ValidateResponse(validation.CatalogPage, resp); err != nil {
		h.logger.WithError(err).Warn("Catalog page does not match its schema")
	}

	c.JSON(http.StatusOK, resp)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return v
}
