package handlers

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/vision-gateway/internal/models"
	"go.uber.org/zap"
)

const (
	statusHealthy       = "healthy"
	statusNotConfigured = "not configured"

	healthCheckTimeout = 3 * time.Second
)

// === REQUEST PARSING ===

func (h *AnalysisHandler) parseMultipartForm(c *gin.Context) error {
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		return fmt.Errorf("failed to parse form data: %w", err)
	}
	return nil
}

func parseErrorStatus(err error) int {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func (h *AnalysisHandler) parseOptions(c *gin.Context) models.AnalysisOptions {
	return models.AnalysisOptions{
		Prompt: c.PostForm(promptParamKey),
		Model:  strings.TrimSpace(c.PostForm(modelParamKey)),
		APIKey: strings.TrimSpace(c.PostForm(apiKeyParamKey)),
	}
}

// === FILE OPERATIONS ===

func (h *AnalysisHandler) getUploadedFile(c *gin.Context) (*multipart.FileHeader, error) {
	files := c.Request.MultipartForm.File[imageParamKey]
	if len(files) > 0 && files[0].Filename != "" {
		return files[0], nil
	}
	if len(files) > 0 || h.fieldPresent(c, imageParamKey) {
		return nil, errors.New("no image selected")
	}
	return nil, errors.New("no image file provided")
}

// getUploadedFiles rejects an empty selection before anything is staged. A
// file part sent without a filename is parsed as a plain value, so a present
// field with no files means the client selected nothing.
func (h *AnalysisHandler) getUploadedFiles(c *gin.Context) ([]*multipart.FileHeader, error) {
	files := c.Request.MultipartForm.File[imagesParamKey]
	if len(files) > 0 && files[0].Filename != "" {
		return files, nil
	}
	if len(files) > 0 || h.fieldPresent(c, imagesParamKey) {
		return nil, errors.New("no image selected")
	}
	return nil, errors.New("no images uploaded")
}

func (h *AnalysisHandler) fieldPresent(c *gin.Context, key string) bool {
	_, ok := c.Request.MultipartForm.Value[key]
	return ok
}

// === RESPONSE HANDLING ===

func (h *AnalysisHandler) respondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, models.APIResponse{
		Success: false,
		Error:   message,
	})
}

// === UTILITY METHODS ===

func (h *AnalysisHandler) serviceStatus(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	services := map[string]string{
		"redis":             statusNotConfigured,
		"rabbitmq":          statusNotConfigured,
		"vision_credential": statusNotConfigured,
	}

	if h.usage != nil {
		if err := h.usage.Ping(ctx); err != nil {
			h.logger.Warn("Redis health check failed", zap.Error(err))
			services["redis"] = "unhealthy: " + err.Error()
		} else {
			services["redis"] = statusHealthy
		}
	}

	if h.queue != nil {
		services["rabbitmq"] = h.queue.HealthCheck()
	}

	if h.hasDefaultKey {
		services["vision_credential"] = statusHealthy
	}

	return services
}

func (h *AnalysisHandler) calculateOverallHealth(services map[string]string) string {
	for _, status := range services {
		if status != statusHealthy && status != statusNotConfigured {
			return "unhealthy"
		}
	}
	return "healthy"
}
