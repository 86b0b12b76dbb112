package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/temcen/cinematch/internal/catalog"
	"github.com/temcen/cinematch/internal/validation"
)

// ValidatedBodyKey holds the decoded body of a request that passed schema validation.
const ValidatedBodyKey = "validatedBody"

// ValidationMiddleware provides request validation middleware
type ValidationMiddleware struct {
	validator *validation.SchemaValidator
}

func NewValidationMiddleware(validator *validation.SchemaValidator) *ValidationMiddleware {
	return &ValidationMiddleware{
		validator: validator,
	}
}

// ValidateRecommendRequest validates POST /api/recommend bodies
func (vm *ValidationMiddleware) ValidateRecommendRequest() gin.HandlerFunc {
	return vm.validateRequestBody(validation.RecommendRequest)
}

// validateRequestBody creates a middleware that validates request body against a schema
func (vm *ValidationMiddleware) validateRequestBody(schemaName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodDelete {
			c.Next()
			return
		}

		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			sendError(c, http.StatusBadRequest, "BODY_READ_ERROR", "Failed to read request body", map[string]any{
				"error": err.Error(),
			})
			return
		}

		// Restore request body for downstream handlers
		c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		if len(bytes.TrimSpace(bodyBytes)) == 0 {
			sendError(c, http.StatusBadRequest, "EMPTY_BODY", "Request body is required", nil)
			return
		}

		var jsonData any
		if err := json.Unmarshal(bodyBytes, &jsonData); err != nil {
			sendError(c, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", map[string]any{
				"parseError": err.Error(),
			})
			return
		}

		result := vm.validator.ValidateJSON(schemaName, bodyBytes)
		if !result.Valid {
			vm.sendValidationErrors(c, result.Errors)
			return
		}

		c.Set(ValidatedBodyKey, jsonData)
		c.Next()
	}
}

// ValidateCatalogQuery checks the numeric query parameters of GET /api/movies.
func (vm *ValidationMiddleware) ValidateCatalogQuery() gin.HandlerFunc {
	return func(c *gin.Context) {
		errs := make([]validation.ValidationError, 0)

		if page := c.Query("page"); page != "" {
			if _, err := strconv.Atoi(page); err != nil {
				errs = append(errs, validation.ValidationError{
					Field:   "page",
					Message: "page must be an integer",
					Code:    "INVALID_QUERY_PARAM",
					Value:   page,
				})
			}
		}

		if perPage := c.Query("per_page"); perPage != "" {
			if _, err := strconv.Atoi(perPage); err != nil {
				errs = append(errs, validation.ValidationError{
					Field:   "per_page",
					Message: "per_page must be an integer",
					Code:    "INVALID_QUERY_PARAM",
					Value:   perPage,
				})
			}
		}

		if sample := c.Query("sample"); sample != "" {
			if _, err := catalog.ParseSample(sample); err != nil {
				errs = append(errs, validation.ValidationError{
					Field:   "sample",
					Message: "Sample must be 'all' or a positive integer",
					Code:    "INVALID_QUERY_PARAM",
					Value:   sample,
				})
			}
		}

		if len(errs) > 0 {
			vm.sendValidationErrors(c, errs)
			return
		}

		c.Next()
	}
}

// SendError writes the API error envelope and aborts the request.
func SendError(c *gin.Context, status int, code, message string, details map[string]any) {
	sendError(c, status, code, message, details)
}

func sendError(c *gin.Context, status int, code, message string, details map[string]any) {
	errorBody := map[string]any{
		"code":      code,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"requestId": c.GetString(RequestIDKey),
		"path":      c.Request.URL.Path,
		"method":    c.Request.Method,
	}
	if details != nil {
		errorBody["details"] = details
	}

	c.AbortWithStatusJSON(status, map[string]any{"error": errorBody})
}

func (vm *ValidationMiddleware) sendValidationErrors(c *gin.Context, errs []validation.ValidationError) {
	apiError := (&validation.ValidationResult{Valid: false, Errors: errs}).ToAPIError()
	errorObj := apiError["error"].(map[string]any)
	sendError(c, http.StatusBadRequest, errorObj["code"].(string), errorObj["message"].(string),
		errorObj["details"].(map[string]any))
}

// ResponseValidator checks outgoing documents against their schema. It is
// meant for development; a nil or disabled validator accepts everything.
type ResponseValidator struct {
	validator *validation.SchemaValidator
	enabled   bool
}

func NewResponseValidator(validator *validation.SchemaValidator, enabled bool) *ResponseValidator {
	return &ResponseValidator{
		validator: validator,
		enabled:   enabled,
	}
}

// ValidateResponse validates data against the named schema.
func (rv *ResponseValidator) ValidateResponse(schemaName string, data any) error {
	if rv == nil || !rv.enabled {
		return nil
	}
	if !rv.validator.SchemaExists(schemaName) {
		return fmt.Errorf("no response schema named %q", schemaName)
	}

	result := rv.validator.ValidateDocument(schemaName, data)
	if !result.Valid {
		return fmt.Errorf("response validation failed: %v", result.Errors)
	}
	return nil
}
