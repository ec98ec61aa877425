package util

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
)

const DefaultMIMEType = "application/octet-stream"

var exportMIMETypes = map[string]string{
	"pdf":  "application/pdf",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"csv":  "text/csv",
	"zip":  "application/zip",
	"sql":  "application/sql",
}

// Extension returns the lower-cased extension of name without the dot.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// ExportMIMEType maps an export file extension to its content type.
func ExportMIMEType(extension string) string {
	if mimeType, ok := exportMIMETypes[strings.ToLower(strings.TrimSpace(extension))]; ok {
		return mimeType
	}
	return DefaultMIMEType
}

// SniffMIME detects the content type of the leading bytes of a file,
// stripping parameters such as charset.
func SniffMIME(head []byte) string {
	detected := http.DetectContentType(head)
	if idx := strings.Index(detected, ";"); idx >= 0 {
		detected = detected[:idx]
	}
	return strings.ToLower(strings.TrimSpace(detected))
}

func IsImageMIME(mimeType string) bool {
	cleaned := strings.ToLower(strings.TrimSpace(mimeType))
	return strings.HasPrefix(cleaned, "image/")
}

// FormatBytes renders a size using binary units, e.g. "1.5 KB".
func FormatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
