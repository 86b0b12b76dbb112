package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temcen/cinematch/internal/config"
	"github.com/temcen/cinematch/internal/metrics"
	"github.com/temcen/cinematch/internal/validation"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func decodeError(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(body, &resp))
	errObj, ok := resp["error"].(map[string]any)
	require.True(t, ok, "response must use the error envelope: %s", body)
	return errObj
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(RequestIDKey))
	})

	t.Run("propagates caller id", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		router.ServeHTTP(w, req)

		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "abc-123", w.Body.String())
	})

	t.Run("generates id when absent", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

		id := w.Header().Get(RequestIDHeader)
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
		assert.Equal(t, id, w.Body.String())
	})
}

func TestValidateRecommendRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	validator, err := validation.NewSchemaValidator()
	require.NoError(t, err)

	router := gin.New()
	router.Use(RequestID())
	router.POST("/api/recommend", NewValidationMiddleware(validator).ValidateRecommendRequest(), func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		_, exists := c.Get(ValidatedBodyKey)
		c.JSON(http.StatusOK, gin.H{"body": string(body), "validated": exists})
	})

	tests := []struct {
		name         string
		body         string
		expectedCode int
		errorCode    string
	}{
		{
			name:         "valid request",
			body:         `{"ratings":[{"movieId":1,"rating":4.5},{"movieId":2,"rating":0}]}`,
			expectedCode: http.StatusOK,
		},
		{
			name:         "empty ratings reach the handler",
			body:         `{"ratings":[]}`,
			expectedCode: http.StatusOK,
		},
		{
			name:         "non-positive movie ids reach the handler",
			body:         `{"ratings":[{"movieId":-4,"rating":3},{"movieId":0,"rating":2}]}`,
			expectedCode: http.StatusOK,
		},
		{
			name:         "empty body",
			body:         "",
			expectedCode: http.StatusBadRequest,
			errorCode:    "EMPTY_BODY",
		},
		{
			name:         "invalid json",
			body:         `{"ratings":[`,
			expectedCode: http.StatusBadRequest,
			errorCode:    "INVALID_JSON",
		},
		{
			name:         "missing ratings",
			body:         `{}`,
			expectedCode: http.StatusBadRequest,
			errorCode:    "VALIDATION_ERROR",
		},
		{
			name:         "rating out of range",
			body:         `{"ratings":[{"movieId":1,"rating":7}]}`,
			expectedCode: http.StatusBadRequest,
			errorCode:    "VALIDATION_ERROR",
		},
		{
			name:         "movie id not an integer",
			body:         `{"ratings":[{"movieId":"one","rating":3}]}`,
			expectedCode: http.StatusBadRequest,
			errorCode:    "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/recommend", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.errorCode == "" {
				var resp map[string]any
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.body, resp["body"], "body must be restored for the handler")
				assert.Equal(t, true, resp["validated"])
				return
			}

			errObj := decodeError(t, w.Body.Bytes())
			assert.Equal(t, tt.errorCode, errObj["code"])
			assert.Equal(t, "/api/recommend", errObj["path"])
			assert.Equal(t, w.Header().Get(RequestIDHeader), errObj["requestId"])
		})
	}
}

func TestValidateCatalogQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	validator, err := validation.NewSchemaValidator()
	require.NoError(t, err)

	router := gin.New()
	router.GET("/api/movies", NewValidationMiddleware(validator).ValidateCatalogQuery(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name         string
		query        string
		expectedCode int
		field        string
	}{
		{name: "no params", query: "", expectedCode: http.StatusNoContent},
		{name: "all params", query: "?sample=all&page=2&per_page=50&sort=year&order=asc", expectedCode: http.StatusNoContent},
		{name: "numeric sample", query: "?sample=150", expectedCode: http.StatusNoContent},
		{name: "unknown sort falls through", query: "?sort=popularity", expectedCode: http.StatusNoContent},
		{name: "oversized per_page is clamped later", query: "?per_page=5000", expectedCode: http.StatusNoContent},
		{name: "zero page is clamped later", query: "?page=0", expectedCode: http.StatusNoContent},
		{name: "negative page is clamped later", query: "?page=-2", expectedCode: http.StatusNoContent},
		{name: "text page", query: "?page=two", expectedCode: http.StatusBadRequest, field: "page"},
		{name: "text per_page", query: "?per_page=many", expectedCode: http.StatusBadRequest, field: "per_page"},
		{name: "negative sample", query: "?sample=-3", expectedCode: http.StatusBadRequest, field: "sample"},
		{name: "garbage sample", query: "?sample=some", expectedCode: http.StatusBadRequest, field: "sample"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/movies"+tt.query, nil))

			assert.Equal(t, tt.expectedCode, w.Code)
			if tt.field == "" {
				return
			}
			errObj := decodeError(t, w.Body.Bytes())
			assert.Equal(t, "VALIDATION_ERROR", errObj["code"])
			details := errObj["details"].(map[string]any)
			assert.Contains(t, details["fieldErrors"], tt.field)
		})
	}
}

func TestResponseValidator(t *testing.T) {
	validator, err := validation.NewSchemaValidator()
	require.NoError(t, err)

	valid := map[string]any{"recommended": []any{}, "strategy": "similarity"}
	invalid := map[string]any{"strategy": 3}

	tests := []struct {
		name      string
		rv        *ResponseValidator
		schema    string
		data      any
		expectErr bool
	}{
		{name: "matching document", rv: NewResponseValidator(validator, true), schema: validation.RecommendResponse, data: valid},
		{name: "mismatching document", rv: NewResponseValidator(validator, true), schema: validation.RecommendResponse, data: invalid, expectErr: true},
		{name: "unknown schema", rv: NewResponseValidator(validator, true), schema: "nope", data: valid, expectErr: true},
		{name: "disabled", rv: NewResponseValidator(validator, false), schema: validation.RecommendResponse, data: invalid},
		{name: "nil validator", rv: nil, schema: validation.RecommendResponse, data: invalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rv.ValidateResponse(tt.schema, tt.data)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Recovery(newTestLogger()))
	router.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", decodeError(t, w.Body.Bytes())["code"])
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func(origins []string) *gin.Engine {
		cfg := &config.Config{}
		cfg.Security.CORS = config.CORSConfig{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type"},
		}
		router := gin.New()
		router.Use(CORS(cfg))
		router.GET("/api/health", func(c *gin.Context) { c.Status(http.StatusOK) })
		return router
	}

	t.Run("wildcard allows any origin", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		newRouter([]string{"*"}).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("explicit origins reject others", func(t *testing.T) {
		router := newRouter([]string{"https://cinematch.example"})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "https://cinematch.example")
		router.ServeHTTP(w, req)
		assert.Equal(t, "https://cinematch.example", w.Header().Get("Access-Control-Allow-Origin"))

		w = httptest.NewRecorder()
		req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Origin", "https://evil.example")
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()

	router := gin.New()
	router.Use(Metrics(metrics.New(reg)))
	router.GET("/api/movies", func(c *gin.Context) { c.Status(http.StatusOK) })

	for range 3 {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/movies?page=2", nil))
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	count, err := testutil.GatherAndCount(reg, "cinematch_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count, "one series for the route template and one for unmatched paths")
}

func TestCompression(t *testing.T) {
	gin.SetMode(gin.TestMode)
	payload := strings.Repeat(`{"title":"Toy Story"}`, 200)

	router := gin.New()
	router.Use(Compression(gzip.DefaultCompression))
	router.GET("/api/movies", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(payload))
	})
	router.GET("/empty", func(c *gin.Context) {
		c.AbortWithStatus(http.StatusNoContent)
	})

	t.Run("compresses when accepted", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/movies", nil)
		req.Header.Set("Accept-Encoding", "gzip, deflate")
		router.ServeHTTP(w, req)

		assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
		zr, err := gzip.NewReader(w.Body)
		require.NoError(t, err)
		body, err := io.ReadAll(zr)
		require.NoError(t, err)
		assert.Equal(t, payload, string(body))
	})

	t.Run("plain without accept-encoding", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/movies", nil))

		assert.Empty(t, w.Header().Get("Content-Encoding"))
		assert.Equal(t, payload, w.Body.String())
	})

	t.Run("bodiless response is untouched", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/empty", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("Content-Encoding"))
		assert.Zero(t, w.Body.Len())
	})
}
