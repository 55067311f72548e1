package storage

import (
	"path/filepath"
	"strings"
)

var contentTypes = map[string]string{
	".m3u8": "application/x-mpegURL",
	".m4s":  "video/iso.segment",
	".mp4":  "video/mp4",
	".ts":   "video/MP2T",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// ContentTypeFor infers the MIME type of a file from its extension. Unknown
// extensions fall back to application/octet-stream.
func ContentTypeFor(name string) string {
	if contentType, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return contentType
	}
	return "application/octet-stream"
}
