package constants

import "strings"

// DocumentKind is the coarse input family a Document belongs to.
type DocumentKind string

const (
	PDF   DocumentKind = "PDF"
	IMAGE DocumentKind = "IMAGE"
)

// SupportedExtensions maps lowercase extensions (without '.') to their document kind.
var SupportedExtensions = map[string]DocumentKind{
	"pdf":  PDF,
	"png":  IMAGE,
	"jpg":  IMAGE,
	"jpeg": IMAGE,
	"tiff": IMAGE,
	"tif":  IMAGE,
	"bmp":  IMAGE,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToKind returns the document kind for ext, or "" when unsupported.
func MapExtToKind(ext string) DocumentKind {
	return SupportedExtensions[NormalizeExt(ext)]
}

// IsSupportedExt reports whether ext (with or without dot, any case) can be processed.
func IsSupportedExt(ext string) bool {
	return MapExtToKind(ext) != ""
}
