package analysis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phambaophuc/vision-gateway/internal/config"
	"github.com/phambaophuc/vision-gateway/internal/metrics"
	"github.com/phambaophuc/vision-gateway/internal/models"
	"github.com/phambaophuc/vision-gateway/internal/services/processor"
	"go.uber.org/zap"
)

// Inferencer performs one upstream analysis.
type Inferencer interface {
	Analyze(ctx context.Context, req *models.AnalysisRequest) (*models.AnalysisResult, error)
}

// UsageRecorder accumulates token counts per model.
type UsageRecorder interface {
	Record(ctx context.Context, model string, inputTokens, outputTokens int) error
}

// EventPublisher receives one event per analyzed image.
type EventPublisher interface {
	PublishAnalysis(ctx context.Context, event models.AnalysisEvent) error
}

// sideEffectTimeout bounds usage recording and event publishing. Both outlive
// a disconnected caller.
const sideEffectTimeout = 2 * time.Second

type Service struct {
	inferencer Inferencer
	processor  *processor.ImageProcessor
	usage      UsageRecorder
	events     EventPublisher

	defaultPrompt string
	defaultModel  string
	workers       int

	logger *zap.Logger
}

type Option func(*Service)

// WithUsageRecorder enables per-model token accounting.
func WithUsageRecorder(r UsageRecorder) Option {
	return func(s *Service) {
		s.usage = r
	}
}

// WithEventPublisher enables analysis events.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

func NewService(
	inferencer Inferencer,
	imageProcessor *processor.ImageProcessor,
	vision config.VisionConfig,
	batch config.BatchConfig,
	logger *zap.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		inferencer:    inferencer,
		processor:     imageProcessor,
		defaultPrompt: vision.Prompt,
		defaultModel:  vision.Model,
		workers:       batch.Workers,
		logger:        logger,
	}
	if s.defaultPrompt == "" {
		s.defaultPrompt = config.DefaultPrompt
	}
	if s.defaultModel == "" {
		s.defaultModel = config.DefaultModel
	}
	if s.workers < 1 {
		s.workers = 1
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveOptions fills blank prompt and model with the configured defaults.
func (s *Service) ResolveOptions(opts models.AnalysisOptions) models.AnalysisOptions {
	if strings.TrimSpace(opts.Prompt) == "" {
		opts.Prompt = s.defaultPrompt
	}
	if strings.TrimSpace(opts.Model) == "" {
		opts.Model = s.defaultModel
	}
	return opts
}

// AnalyzeFile reads a staged file and runs it through the vision endpoint.
// The staged file is left in place; its owner removes it.
func (s *Service) AnalyzeFile(ctx context.Context, file models.StagedFile, opts models.AnalysisOptions) (*models.AnalysisResult, error) {
	opts = s.ResolveOptions(opts)
	start := time.Now()

	result, err := s.analyzeFile(ctx, file, opts)

	s.observe(ctx, file, opts.Model, result, err, time.Since(start))
	return result, err
}

func (s *Service) analyzeFile(ctx context.Context, file models.StagedFile, opts models.AnalysisOptions) (*models.AnalysisResult, error) {
	data, err := os.ReadFile(file.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read staged file %q: %w", file.Filename, err)
	}
	if len(data) == 0 {
		return nil, &models.ValidationError{Message: fmt.Sprintf("file %q is empty", file.Filename)}
	}

	prepared, err := s.processor.Prepare(data, processor.DetectFormat(file.Filename))
	if err != nil {
		s.logger.Warn("Sending image without resizing",
			zap.String("filename", file.Filename),
			zap.Error(err))
	}
	if prepared.Resized {
		s.logger.Info("Image downscaled",
			zap.String("filename", file.Filename),
			zap.Int("original_kb", len(data)/1024),
			zap.Int("resized_kb", len(prepared.Data)/1024))
	}

	return s.inferencer.Analyze(ctx, &models.AnalysisRequest{
		Image:  prepared.Data,
		Format: prepared.Format,
		Prompt: opts.Prompt,
		Model:  opts.Model,
		APIKey: opts.APIKey,
	})
}

func (s *Service) observe(ctx context.Context, file models.StagedFile, model string, result *models.AnalysisResult, err error, elapsed time.Duration) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	outcome := models.Outcome(err)
	metrics.AnalysesTotal.WithLabelValues(outcome).Inc()

	event := models.AnalysisEvent{
		ID:         uuid.New().String(),
		Filename:   file.Filename,
		Model:      model,
		Success:    err == nil,
		DurationMS: elapsed.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}

	if err != nil {
		event.Error = err.Error()
		s.logger.Error("Image analysis failed",
			zap.String("filename", file.Filename),
			zap.String("outcome", outcome),
			zap.Error(err))
	} else {
		event.InputTokens = result.InputTokens
		event.OutputTokens = result.OutputTokens
		metrics.ObserveTokens(result.InputTokens, result.OutputTokens)

		if s.usage != nil {
			if err := s.usage.Record(ctx, model, result.InputTokens, result.OutputTokens); err != nil {
				s.logger.Warn("Failed to record usage", zap.String("model", model), zap.Error(err))
			}
		}
	}

	if s.events != nil {
		if err := s.events.PublishAnalysis(ctx, event); err != nil {
			s.logger.Warn("Failed to publish analysis event", zap.String("id", event.ID), zap.Error(err))
		}
	}
}
