package processor

import (
	"encoding/base64"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/phambaophuc/vision-gateway/internal/models"
)

// EncodeDataURI inlines raw image bytes as a data URI for the upstream payload.
func EncodeDataURI(data []byte, format models.ImageFormat) string {
	return fmt.Sprintf("data:%s;base64,%s", format.MIMEType(), base64.StdEncoding.EncodeToString(data))
}

func (p *ImageProcessor) encodeImage(w io.Writer, img image.Image, format models.ImageFormat) error {
	switch format {
	case models.FormatJPEG:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(p.quality))
	case models.FormatPNG:
		return imaging.Encode(w, img, imaging.PNG)
	default:
		return fmt.Errorf("cannot encode format %q", format)
	}
}

// outputFormat is the format a resized image is written in. There is no webp
// encoder, so webp is re-encoded as png to keep transparency.
func outputFormat(format models.ImageFormat) models.ImageFormat {
	if format == models.FormatWebP {
		return models.FormatPNG
	}
	return format
}
