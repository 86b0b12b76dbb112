package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/cinematch/internal/cache"
	"github.com/temcen/cinematch/internal/dataset"
)

// CacheReporter exposes catalog query cache statistics.
type CacheReporter interface {
	CacheStats() cache.Stats
}

// DependencyChecker pings the optional external stores.
type DependencyChecker interface {
	Health(ctx context.Context) map[string]string
}

type HealthHandler struct {
	logger   *logrus.Logger
	stats    dataset.Stats
	strategy string
	cache    CacheReporter
	deps     DependencyChecker
	schemas  []string
}

type HealthStatus struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Strategy     string            `json:"strategy"`
	Dataset      dataset.Stats     `json:"dataset"`
	Cache        cache.Stats       `json:"cache"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
	Schemas      []string          `json:"schemas,omitempty"`
}

// NewHealthHandler reports schemas as the names of the loaded JSON schemas.
func NewHealthHandler(logger *logrus.Logger, stats dataset.Stats, strategy string, cache CacheReporter, deps DependencyChecker, schemas []string) *HealthHandler {
	return &HealthHandler{
		logger:   logger,
		stats:    stats,
		strategy: strategy,
		cache:    cache,
		deps:     deps,
		schemas:  schemas,
	}
}

// Check serves GET /api/health. The engine is fully in memory, so a failing
// optional store shows up in the details but not in the status code.
func (h *HealthHandler) Check(c *gin.Context) {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Strategy:  h.strategy,
		Dataset:   h.stats,
		Cache:     h.cache.CacheStats(),
		Schemas:   h.schemas,
	}

	if h.deps != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		status.Dependencies = h.deps.Health(ctx)
		for name, state := range status.Dependencies {
			if strings.HasPrefix(state, "unhealthy") {
				h.logger.WithField("dependency", name).Warn(state)
			}
		}
	}

	c.JSON(http.StatusOK, status)
}
