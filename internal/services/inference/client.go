package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/phambaophuc/vision-gateway/internal/config"
	"github.com/phambaophuc/vision-gateway/internal/metrics"
	"github.com/phambaophuc/vision-gateway/internal/models"
	"github.com/phambaophuc/vision-gateway/internal/services/processor"
	"go.uber.org/zap"
)

// Client performs one chat-completions round trip per call against an
// OpenAI-compatible vision endpoint. It is safe for concurrent use.
type Client struct {
	endpoint      string
	defaultAPIKey string
	systemPrompt  string
	httpClient    *http.Client
	logger        *zap.Logger
}

func NewClient(cfg config.VisionConfig, logger *zap.Logger) *Client {
	return &Client{
		endpoint:      cfg.Endpoint,
		defaultAPIKey: cfg.APIKey,
		systemPrompt:  cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

// HasDefaultAPIKey reports whether a process-wide credential is configured.
func (c *Client) HasDefaultAPIKey() bool {
	return c.defaultAPIKey != ""
}

// Analyze sends the image and prompt upstream. It returns either a result or
// exactly one of ConfigurationError, TransportError, UpstreamError or
// UpstreamProtocolError. Nothing is retried.
func (c *Client) Analyze(ctx context.Context, req *models.AnalysisRequest) (*models.AnalysisResult, error) {
	apiKey := c.resolveAPIKey(req.APIKey)
	if apiKey == "" {
		c.logger.Error("No API key available for vision request")
		return nil, &models.ConfigurationError{
			Message: "no API key provided: set DASHSCOPE_API_KEY or pass api_key with the request",
		}
	}

	imageURL := processor.EncodeDataURI(req.Image, req.Format)
	c.logger.Info("Image encoded",
		zap.String("format", string(req.Format)),
		zap.Int("encoded_kb", len(imageURL)/1024))

	payload, err := json.Marshal(newChatRequest(req.Model, c.systemPrompt, imageURL, req.Prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	c.logger.Info("Sending vision request",
		zap.String("model", req.Model),
		zap.String("prompt", req.Prompt))

	start := time.Now()
	result, err := c.do(httpReq)
	metrics.UpstreamDurationSeconds.WithLabelValues(models.Outcome(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	c.logger.Info("Vision request succeeded",
		zap.String("model", req.Model),
		zap.Int("input_tokens", result.InputTokens),
		zap.Int("output_tokens", result.OutputTokens),
		zap.Duration("latency", time.Since(start)))

	return result, nil
}

func (c *Client) do(httpReq *http.Request) (*models.AnalysisResult, error) {
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("Vision endpoint unreachable", zap.Error(err))
		return nil, &models.TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("Failed to read vision response", zap.Error(err))
		return nil, &models.TransportError{Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		message := extractErrorMessage(resp.StatusCode, body)
		c.logger.Error("Vision request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("message", message))
		return nil, &models.UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    message,
		}
	}

	result, err := parseCompletion(body)
	if err != nil {
		c.logger.Error("Unexpected vision response shape", zap.Error(err))
		return nil, err
	}
	return result, nil
}

func (c *Client) resolveAPIKey(requestKey string) string {
	if requestKey != "" {
		return requestKey
	}
	return c.defaultAPIKey
}
