package analysis

import (
	"context"
	"fmt"

	"github.com/phambaophuc/vision-gateway/internal/metrics"
	"github.com/phambaophuc/vision-gateway/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AnalyzeBatch analyzes every staged file with bounded concurrency. Items are
// returned in input order and a failing item never aborts the others.
func (s *Service) AnalyzeBatch(ctx context.Context, files []models.StagedFile, opts models.AnalysisOptions) ([]models.BatchItem, error) {
	if len(files) == 0 || files[0].Filename == "" {
		return nil, &models.ValidationError{Message: "no image selected"}
	}

	opts = s.ResolveOptions(opts)
	metrics.BatchSize.Observe(float64(len(files)))

	s.logger.Info("Starting batch analysis",
		zap.Int("images", len(files)),
		zap.Int("workers", s.workers),
		zap.String("model", opts.Model))

	items := make([]models.BatchItem, len(files))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, file := range files {
		g.Go(func() error {
			items[i] = s.analyzeItem(ctx, file, opts)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, item := range items {
		if !item.Succeeded() {
			failed++
		}
	}
	s.logger.Info("Batch analysis completed",
		zap.Int("images", len(items)),
		zap.Int("failed", failed))

	return items, nil
}

func (s *Service) analyzeItem(ctx context.Context, file models.StagedFile, opts models.AnalysisOptions) (item models.BatchItem) {
	item.Filename = file.Filename
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered panic while analyzing image",
				zap.String("filename", file.Filename),
				zap.Any("panic", r))
			item.Result = nil
			item.Err = fmt.Errorf("internal error while analyzing %q: %v", file.Filename, r)
		}
	}()

	item.Result, item.Err = s.AnalyzeFile(ctx, file, opts)
	return item
}
