package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"go-timetable-admin/internal/service"
	"go-timetable-admin/pkg/apierror"
)

// multipartOverhead leaves room for boundaries and part headers on top of
// the image itself.
const multipartOverhead = 64 * 1024

type ProfileHandler struct {
	service       *service.ProfileImageService
	maxUploadSize int64
}

func NewProfileHandler(service *service.ProfileImageService, maxUploadSize int64) *ProfileHandler {
	return &ProfileHandler{service: service, maxUploadSize: maxUploadSize}
}

func (h *ProfileHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		if isPayloadTooLarge(err) {
			writeError(w, apierror.New("PAYLOAD_TOO_LARGE", "image exceeds MAX_UPLOAD_SIZE", "MAX_UPLOAD_SIZE", http.StatusRequestEntityTooLarge))
			return
		}
		writeError(w, apierror.New("BAD_REQUEST", "invalid multipart body", err.Error(), http.StatusBadRequest))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "multipart field 'image' is required", "image", http.StatusBadRequest))
		return
	}
	defer file.Close()

	if header.Size > h.maxUploadSize {
		writeError(w, apierror.New("PAYLOAD_TOO_LARGE", "image exceeds MAX_UPLOAD_SIZE", "MAX_UPLOAD_SIZE", http.StatusRequestEntityTooLarge))
		return
	}

	user, err := h.service.Upload(r.Context(), actorFromRequest(r), id, file)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user, nil)
}

func (h *ProfileHandler) ServeImage(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))

	file, info, err := h.service.Open(name)
	if err != nil {
		writeError(w, err)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "private, max-age=86400")
	http.ServeContent(w, r, info.Name(), info.ModTime(), file)
}

func isPayloadTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "request body too large")
}
