package processor

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/phambaophuc/vision-gateway/internal/models"
	_ "golang.org/x/image/webp"
)

const DefaultQuality = 85

type ImageProcessor struct {
	maxDimension int
	quality      int
}

// PreparedImage is what gets encoded and sent upstream.
type PreparedImage struct {
	Data    []byte
	Format  models.ImageFormat
	Resized bool
}

// NewImageProcessor returns a processor that downscales images whose larger
// edge exceeds maxDimension. A maxDimension of 0 disables resizing.
func NewImageProcessor(maxDimension int) *ImageProcessor {
	return &ImageProcessor{
		maxDimension: maxDimension,
		quality:      DefaultQuality,
	}
}

// Prepare returns the bytes to send upstream. Small images, and any image that
// cannot be decoded or re-encoded, pass through untouched; the error is
// informational and the returned image is always usable.
func (p *ImageProcessor) Prepare(data []byte, format models.ImageFormat) (PreparedImage, error) {
	original := PreparedImage{Data: data, Format: format}
	if p.maxDimension <= 0 {
		return original, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return original, fmt.Errorf("failed to read image dimensions: %w", err)
	}
	if !p.exceedsLimit(cfg.Width, cfg.Height) {
		return original, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return original, fmt.Errorf("failed to decode image: %w", err)
	}

	outFormat := outputFormat(format)
	buffer := &bytes.Buffer{}
	if err := p.encodeImage(buffer, p.fitImage(img), outFormat); err != nil {
		return original, fmt.Errorf("failed to encode image: %w", err)
	}

	return PreparedImage{
		Data:    buffer.Bytes(),
		Format:  outFormat,
		Resized: true,
	}, nil
}
