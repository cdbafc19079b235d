package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/vision-gateway/internal/models"
	"github.com/phambaophuc/vision-gateway/internal/services/staging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAnalyzer struct{}

func (stubAnalyzer) AnalyzeFile(context.Context, models.StagedFile, models.AnalysisOptions) (*models.AnalysisResult, error) {
	return &models.AnalysisResult{Result: "ok"}, nil
}

func (stubAnalyzer) AnalyzeBatch(context.Context, []models.StagedFile, models.AnalysisOptions) ([]models.BatchItem, error) {
	return nil, nil
}

type stubUsage struct {
	totals  []models.ModelUsage
	err     error
	pingErr error
}

func (s stubUsage) Totals(context.Context) ([]models.ModelUsage, error) {
	return s.totals, s.err
}

func (s stubUsage) Ping(context.Context) error {
	return s.pingErr
}

type stubQueue string

func (s stubQueue) HealthCheck() string {
	return string(s)
}

func newTestRouter(t *testing.T, opts ...Option) *gin.Engine {
	t.Helper()
	handler := NewAnalysisHandler(stubAnalyzer{}, staging.NewStager(t.TempDir(), zap.NewNop()), zap.NewNop(), opts...)

	router := gin.New()
	router.GET("/health", handler.HealthCheck)
	router.GET("/usage", handler.Usage)
	return router
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func decodeHealth(t *testing.T, w *httptest.ResponseRecorder) models.HealthCheck {
	t.Helper()
	var resp struct {
		Data models.HealthCheck `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

func TestHealthCheckAllConfigured(t *testing.T) {
	router := newTestRouter(t,
		WithUsageStore(stubUsage{}),
		WithQueueHealth(stubQueue("healthy")),
		WithDefaultCredential(true),
	)

	w := get(router, "/health")

	require.Equal(t, http.StatusOK, w.Code)
	health := decodeHealth(t, w)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, map[string]string{
		"redis":             "healthy",
		"rabbitmq":          "healthy",
		"vision_credential": "healthy",
	}, health.Services)
}

func TestHealthCheckUnhealthyDependency(t *testing.T) {
	router := newTestRouter(t,
		WithUsageStore(stubUsage{pingErr: errors.New("connection refused")}),
		WithQueueHealth(stubQueue("unhealthy: connection closed")),
	)

	w := get(router, "/health")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	health := decodeHealth(t, w)
	assert.Equal(t, "unhealthy", health.Status)
	assert.Equal(t, "unhealthy: connection refused", health.Services["redis"])
	assert.Equal(t, "unhealthy: connection closed", health.Services["rabbitmq"])
	assert.Equal(t, "not configured", health.Services["vision_credential"])
}

func TestUsage(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		want int
	}{
		{"not configured", nil, http.StatusNotImplemented},
		{"store error", []Option{WithUsageStore(stubUsage{err: errors.New("timeout")})}, http.StatusServiceUnavailable},
		{"totals", []Option{WithUsageStore(stubUsage{totals: []models.ModelUsage{
			{Model: "qwen-vl-max-latest", Requests: 2, InputTokens: 2400, OutputTokens: 30},
		}})}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(newTestRouter(t, tt.opts...), "/usage")
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestUsageBody(t *testing.T) {
	router := newTestRouter(t, WithUsageStore(stubUsage{totals: []models.ModelUsage{
		{Model: "qwen-vl-max-latest", Requests: 2, InputTokens: 2400, OutputTokens: 30},
	}}))

	w := get(router, "/usage")

	assert.JSONEq(t, `{"success":true,"data":[{"model":"qwen-vl-max-latest","requests":2,"input_tokens":2400,"output_tokens":30}]}`, w.Body.String())
}
