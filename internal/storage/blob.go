package storage

import (
	"path"
	"strings"
)

// Content types used for cached media.
const (
	ContentTypePNG    = "image/png"
	ContentTypeJPEG   = "image/jpeg"
	ContentTypeBinary = "application/octet-stream"
)

// ContentTypeFor derives the content type from a key's extension.
func ContentTypeFor(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".png":
		return ContentTypePNG
	case ".jpg", ".jpeg":
		return ContentTypeJPEG
	default:
		return ContentTypeBinary
	}
}

// sanitizeKey strips traversal segments and leading slashes from a key.
func sanitizeKey(key string) string {
	clean := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	clean = strings.TrimPrefix(clean, "/")
	return strings.ReplaceAll(clean, "..", "__")
}
