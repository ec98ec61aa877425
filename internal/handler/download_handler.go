package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"go-timetable-admin/internal/middleware"
	"go-timetable-admin/internal/service"
)

type DownloadHandler struct {
	service *service.DownloadService
}

func NewDownloadHandler(service *service.DownloadService) *DownloadHandler {
	return &DownloadHandler{service: service}
}

// Download streams an export to its owner. Failures are plain text so a
// browser following a download link shows a readable message.
func (h *DownloadHandler) Download(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromRequest(r)
	filename := r.URL.Query().Get("file")

	download, err := h.service.Prepare(r.Context(), identity, filename)
	if err != nil {
		writePlainError(w, err)
		return
	}
	defer download.File.Close()

	artifact := download.Artifact
	header := w.Header()
	header.Set("X-Content-Type-Options", "nosniff")
	header.Set("X-Frame-Options", "DENY")
	header.Set("X-XSS-Protection", "1; mode=block")
	header.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	header.Set("Content-Type", artifact.MimeType)
	// Allow-listed names contain only [A-Za-z0-9_.], so quoting is safe.
	header.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, artifact.Filename))
	header.Set("Content-Length", strconv.FormatInt(artifact.SizeBytes, 10))
	header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	header.Set("Pragma", "no-cache")
	header.Set("Expires", "0")
	w.WriteHeader(http.StatusOK)

	written, err := io.Copy(w, download.File)
	if err != nil {
		slog.Warn("export transfer interrupted",
			"file", artifact.Filename,
			"written", written,
			"size", artifact.SizeBytes,
			"error", err,
		)
	}

	h.service.Complete(download, written)
}
