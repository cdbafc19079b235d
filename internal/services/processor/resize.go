package processor

import (
	"image"

	"github.com/disintegration/imaging"
)

// fitImage scales the image down so that neither edge exceeds maxDimension,
// preserving the aspect ratio.
func (p *ImageProcessor) fitImage(img image.Image) image.Image {
	return imaging.Fit(img, p.maxDimension, p.maxDimension, imaging.Lanczos)
}

func (p *ImageProcessor) exceedsLimit(width, height int) bool {
	return max(width, height) > p.maxDimension
}
