package scan

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is raised at the boundary, before any OCR or
// extraction work happens.
var ErrUnsupportedFormat = errors.New("unsupported input format")

var supportedExts = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
	"tiff": {},
	"bmp":  {},
	"pdf":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

func IsSupported(path string) bool {
	_, ok := supportedExts[NormalizeExt(filepath.Ext(path))]
	return ok
}

func IsPDF(path string) bool {
	return NormalizeExt(filepath.Ext(path)) == "pdf"
}
