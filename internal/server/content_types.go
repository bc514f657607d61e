package server

import (
	"path/filepath"
	"strings"
)

const (
	jsonContentType = "application/json; charset=utf-8"
	textContentType = "text/plain; charset=utf-8"
)

var videoContentTypes = map[string]string{
	".avi":  "video/x-msvideo",
	".m2ts": "video/mp2t",
	".m4v":  "video/mp4",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".mp4":  "video/mp4",
	".ts":   "video/mp2t",
	".webm": "video/webm",
}

// videoContentType is a best-effort type for a media file, empty when the
// extension is unknown.
func videoContentType(path string) string {
	return videoContentTypes[strings.ToLower(filepath.Ext(path))]
}

// acceptableUpload reports whether a declared upload type can be a video.
// Browsers send application/octet-stream or nothing for unknown files.
func acceptableUpload(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	return ct == "" || strings.HasPrefix(ct, "video/") || strings.HasPrefix(ct, "application/octet-stream")
}
