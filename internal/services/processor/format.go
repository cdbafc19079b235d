package processor

import (
	"path/filepath"
	"strings"

	"github.com/phambaophuc/vision-gateway/internal/models"
)

// DetectFormat derives the image format from the filename suffix. Anything
// unrecognized is treated as png; the content itself is not inspected.
func DetectFormat(filename string) models.ImageFormat {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return models.FormatJPEG
	case ".webp":
		return models.FormatWebP
	default:
		return models.FormatPNG
	}
}
