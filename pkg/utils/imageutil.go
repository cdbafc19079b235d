package utils

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	defaultUploadName = "upload"
	maxBaseNameLength = 200
)

// SanitizeFilename strips any directory components a client may have sent and
// bounds the length while keeping the extension.
func SanitizeFilename(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == ".." || strings.TrimSpace(name) == "" {
		return defaultUploadName
	}

	if len(name) > maxBaseNameLength {
		ext := filepath.Ext(name)
		if len(ext) > maxBaseNameLength/2 {
			ext = ""
		}
		name = strings.ToValidUTF8(name[:maxBaseNameLength-len(ext)], "") + ext
	}
	return name
}

// GenerateStagingName returns a per-call unique name for an uploaded file.
// The original suffix is kept so the format can still be derived from it.
func GenerateStagingName(filename string) string {
	return fmt.Sprintf("%s_%s", uuid.New().String(), SanitizeFilename(filename))
}
