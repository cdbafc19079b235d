package staging

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/phambaophuc/vision-gateway/internal/models"
	"github.com/phambaophuc/vision-gateway/pkg/utils"
	"go.uber.org/zap"
)

// Stager writes uploads to a transient directory. Every staged file gets a
// name no concurrent call can share.
type Stager struct {
	dir    string
	logger *zap.Logger
}

func NewStager(dir string, logger *zap.Logger) *Stager {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Stager{
		dir:    dir,
		logger: logger,
	}
}

// Stage copies src into a fresh file and returns its location. The original
// filename is kept for reporting and format detection.
func (s *Stager) Stage(filename string, src io.Reader) (models.StagedFile, error) {
	path := filepath.Join(s.dir, utils.GenerateStagingName(filename))

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return models.StagedFile{}, fmt.Errorf("failed to create staging file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		s.remove(path)
		return models.StagedFile{}, fmt.Errorf("failed to write staging file: %w", err)
	}
	if err := dst.Close(); err != nil {
		s.remove(path)
		return models.StagedFile{}, fmt.Errorf("failed to close staging file: %w", err)
	}

	s.logger.Debug("File staged",
		zap.String("filename", filename),
		zap.String("path", path))

	return models.StagedFile{Filename: filename, Path: path}, nil
}

// StageUpload stages one multipart file.
func (s *Stager) StageUpload(fh *multipart.FileHeader) (models.StagedFile, error) {
	src, err := fh.Open()
	if err != nil {
		return models.StagedFile{}, fmt.Errorf("failed to open uploaded file %q: %w", fh.Filename, err)
	}
	defer src.Close()

	return s.Stage(fh.Filename, src)
}

// StageUploads stages every file or none. On failure the files already
// written are removed before returning.
func (s *Stager) StageUploads(headers []*multipart.FileHeader) ([]models.StagedFile, error) {
	staged := make([]models.StagedFile, 0, len(headers))
	for _, fh := range headers {
		file, err := s.StageUpload(fh)
		if err != nil {
			s.Cleanup(staged...)
			return nil, err
		}
		staged = append(staged, file)
	}
	return staged, nil
}

// Cleanup removes the given staged files. Files that are already gone are
// not an error.
func (s *Stager) Cleanup(files ...models.StagedFile) {
	for _, file := range files {
		s.remove(file.Path)
	}
}

func (s *Stager) remove(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("Failed to remove staged file",
			zap.String("path", path),
			zap.Error(err))
	}
}
