package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/cinematch/pkg/models"
)

func TestNewSchemaValidator_LoadsEmbeddedSchemas(t *testing.T) {
	sv, err := NewSchemaValidator()
	require.NoError(t, err)

	assert.Equal(t, []string{CatalogPage, ErrorResponse, RecommendRequest, RecommendResponse}, sv.GetAvailableSchemas())
}

func TestValidateJSON_RecommendRequest(t *testing.T) {
	sv, err := NewSchemaValidator()
	require.NoError(t, err)

	tests := []struct {
		name  string
		body  string
		valid bool
	}{
		{name: "valid", body: `{"ratings":[{"movieId":1,"rating":4.5},{"movieId":2,"rating":0}]}`, valid: true},
		{name: "missing ratings", body: `{}`, valid: false},
		{name: "empty ratings", body: `{"ratings":[]}`, valid: true},
		{name: "non-positive movie ids", body: `{"ratings":[{"movieId":-3,"rating":3},{"movieId":0,"rating":1}]}`, valid: true},
		{name: "rating too high", body: `{"ratings":[{"movieId":1,"rating":6}]}`, valid: false},
		{name: "string movie id", body: `{"ratings":[{"movieId":"1","rating":3}]}`, valid: false},
		{name: "fractional movie id", body: `{"ratings":[{"movieId":1.5,"rating":3}]}`, valid: false},
		{name: "missing rating", body: `{"ratings":[{"movieId":1}]}`, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sv.ValidateJSON(RecommendRequest, []byte(tt.body))
			assert.Equal(t, tt.valid, result.Valid, "%+v", result.Errors)
			if !tt.valid {
				assert.NotEmpty(t, result.Errors)
				apiErr := result.ToAPIError()
				require.NotNil(t, apiErr)
				assert.Equal(t, "VALIDATION_ERROR", apiErr["error"].(map[string]any)["code"])
			}
		})
	}
}

func TestValidateDocument_CatalogPage(t *testing.T) {
	sv, err := NewSchemaValidator()
	require.NoError(t, err)

	page := models.CatalogPageResponse{
		Movies: []models.CatalogItem{{
			Movie:     models.Movie{ID: 1, Title: "Heat", Year: "1995", Genres: "Action", PosterURL: "https://img/1.jpg"},
			AvgRating: 4.1,
		}},
		Page: 1, PerPage: 30, Total: 1, TotalPages: 1, ElapsedMS: 0.4,
	}
	assert.True(t, sv.ValidateDocument(CatalogPage, page).Valid)

	page.PerPage = 0
	assert.False(t, sv.ValidateDocument(CatalogPage, page).Valid)
}

func TestValidateStruct(t *testing.T) {
	sv, err := NewSchemaValidator()
	require.NoError(t, err)

	ok := models.RecommendRequest{Ratings: []models.RatingInput{{MovieID: 1, Rating: 5}}}
	assert.True(t, sv.ValidateStruct(&ok).Valid)

	unknownID := models.RecommendRequest{Ratings: []models.RatingInput{{MovieID: 0, Rating: 3}}}
	assert.True(t, sv.ValidateStruct(&unknownID).Valid)

	bad := models.RecommendRequest{Ratings: []models.RatingInput{{MovieID: 0, Rating: 7}}}
	result := sv.ValidateStruct(&bad)
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "RecommendRequest.Ratings[0].Rating", result.Errors[0].Field)
}

func TestValidate_UnknownSchema(t *testing.T) {
	sv, err := NewSchemaValidator()
	require.NoError(t, err)

	result := sv.ValidateJSON("nope", []byte(`{}`))
	assert.False(t, result.Valid)
	assert.Equal(t, "SCHEMA_NOT_FOUND", result.Errors[0].Code)
	assert.False(t, sv.SchemaExists("nope"))
	assert.True(t, sv.SchemaExists(RecommendRequest))
}
