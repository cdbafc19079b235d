package models

// ImageFormat is the subtype used in the image data URI sent upstream.
type ImageFormat string

const (
	FormatJPEG ImageFormat = "jpeg"
	FormatPNG  ImageFormat = "png"
	FormatWebP ImageFormat = "webp"
)

// MIMEType returns the content type for the format, e.g. "image/jpeg".
func (f ImageFormat) MIMEType() string {
	return "image/" + string(f)
}
