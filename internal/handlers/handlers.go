package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/temcen/cinematch/internal/middleware"
	"github.com/temcen/cinematch/internal/services"
	"github.com/temcen/cinematch/internal/validation"
)

type Handlers struct {
	Health         *HealthHandler
	Catalog        *CatalogHandler
	Recommendation *RecommendationHandler
}

// New builds the handlers. With validateResponses set, outgoing bodies are
// checked against their schemas and mismatches are logged.
func New(logger *logrus.Logger, services *services.Services, validator *validation.SchemaValidator, validateResponses bool) *Handlers {
	responses := middleware.NewResponseValidator(validator, validateResponses)
	return &Handlers{
		Health:         NewHealthHandler(logger, services.Dataset.Stats, services.Recommendation.Strategy(), services.Catalog, services, validator.GetAvailableSchemas()),
		Catalog:        NewCatalogHandler(services.Catalog, responses, logger),
		Recommendation: NewRecommendationHandler(services.Recommendation, validator, responses, logger),
	}
}
