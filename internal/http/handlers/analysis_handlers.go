package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/vision-gateway/internal/models"
	"github.com/phambaophuc/vision-gateway/internal/services/staging"
	"go.uber.org/zap"
)

const (
	imageParamKey  = "image"
	imagesParamKey = "images"
	promptParamKey = "prompt"
	modelParamKey  = "model"
	apiKeyParamKey = "api_key"

	multipartMemory = 32 << 20
)

// Analyzer runs images through the vision pipeline.
type Analyzer interface {
	AnalyzeFile(ctx context.Context, file models.StagedFile, opts models.AnalysisOptions) (*models.AnalysisResult, error)
	AnalyzeBatch(ctx context.Context, files []models.StagedFile, opts models.AnalysisOptions) ([]models.BatchItem, error)
}

// UsageStore exposes the usage ledger.
type UsageStore interface {
	Totals(ctx context.Context) ([]models.ModelUsage, error)
	Ping(ctx context.Context) error
}

// QueueHealth reports the event broker state.
type QueueHealth interface {
	HealthCheck() string
}

type AnalysisHandler struct {
	analyzer      Analyzer
	stager        *staging.Stager
	usage         UsageStore
	queue         QueueHealth
	hasDefaultKey bool
	logger        *zap.Logger
}

type Option func(*AnalysisHandler)

func WithUsageStore(store UsageStore) Option {
	return func(h *AnalysisHandler) {
		h.usage = store
	}
}

func WithQueueHealth(queue QueueHealth) Option {
	return func(h *AnalysisHandler) {
		h.queue = queue
	}
}

// WithDefaultCredential tells the health endpoint whether a process-wide
// credential is configured.
func WithDefaultCredential(configured bool) Option {
	return func(h *AnalysisHandler) {
		h.hasDefaultKey = configured
	}
}

func NewAnalysisHandler(
	analyzer Analyzer,
	stager *staging.Stager,
	logger *zap.Logger,
	opts ...Option,
) *AnalysisHandler {
	h := &AnalysisHandler{
		analyzer: analyzer,
		stager:   stager,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// === MAIN API ENDPOINTS ===

func (h *AnalysisHandler) Analyze(c *gin.Context) {
	if err := h.parseMultipartForm(c); err != nil {
		h.respondError(c, parseErrorStatus(err), err.Error())
		return
	}
	defer c.Request.MultipartForm.RemoveAll()

	header, err := h.getUploadedFile(c)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	staged, err := h.stager.StageUpload(header)
	if err != nil {
		h.logger.Error("Failed to stage upload", zap.String("filename", header.Filename), zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, "Failed to store uploaded file")
		return
	}
	defer h.stager.Cleanup(staged)

	result, err := h.analyzer.AnalyzeFile(c.Request.Context(), staged, h.parseOptions(c))
	if err != nil {
		h.respondError(c, models.HTTPStatus(err), err.Error())
		return
	}

	c.JSON(http.StatusOK, models.NewAnalyzeResponse(result))
}

func (h *AnalysisHandler) AnalyzeBatch(c *gin.Context) {
	if err := h.parseMultipartForm(c); err != nil {
		h.respondError(c, parseErrorStatus(err), err.Error())
		return
	}
	defer c.Request.MultipartForm.RemoveAll()

	headers, err := h.getUploadedFiles(c)
	if err != nil {
		h.respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	staged, err := h.stager.StageUploads(headers)
	if err != nil {
		h.logger.Error("Failed to stage uploads", zap.Int("files", len(headers)), zap.Error(err))
		h.respondError(c, http.StatusInternalServerError, "Failed to store uploaded files")
		return
	}
	defer h.stager.Cleanup(staged...)

	items, err := h.analyzer.AnalyzeBatch(c.Request.Context(), staged, h.parseOptions(c))
	if err != nil {
		h.respondError(c, models.HTTPStatus(err), err.Error())
		return
	}

	c.JSON(http.StatusOK, models.NewBatchResponse(items))
}

// HealthCheck
func (h *AnalysisHandler) HealthCheck(c *gin.Context) {
	services := h.serviceStatus(c.Request.Context())
	overall := h.calculateOverallHealth(services)

	statusCode := http.StatusOK
	if overall == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, models.APIResponse{
		Success: overall == "healthy",
		Data: models.HealthCheck{
			Status:    overall,
			Timestamp: time.Now(),
			Services:  services,
		},
	})
}

func (h *AnalysisHandler) Usage(c *gin.Context) {
	if h.usage == nil {
		h.respondError(c, http.StatusNotImplemented, "usage tracking is not configured")
		return
	}

	totals, err := h.usage.Totals(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to read usage totals", zap.Error(err))
		h.respondError(c, http.StatusServiceUnavailable, "usage totals are unavailable")
		return
	}

	c.JSON(http.StatusOK, models.APIResponse{
		Success: true,
		Data:    totals,
	})
}
