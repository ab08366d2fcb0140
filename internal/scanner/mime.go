package scanner

import (
	"mime"
	"path/filepath"
	"strings"
)

// IsImagePath reports whether the file extension maps to an image MIME
// type. Files without a recognized image type never reach the hash
// workers; decodability is checked later, when the worker opens them.
func IsImagePath(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	return strings.HasPrefix(mime.TypeByExtension(ext), "image/")
}
