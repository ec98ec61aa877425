package handler

import (
	"net/http"

	"go-timetable-admin/internal/model"
	"go-timetable-admin/internal/service"
)

type ActivityHandler struct {
	service *service.ActivityService
}

func NewActivityHandler(service *service.ActivityService) *ActivityHandler {
	return &ActivityHandler{service: service}
}

func (h *ActivityHandler) List(w http.ResponseWriter, r *http.Request) {
	query := model.ActivityQuery{
		Action: r.URL.Query().Get("action"),
		UserID: r.URL.Query().Get("user_id"),
		From:   r.URL.Query().Get("from"),
		To:     r.URL.Query().Get("to"),
		Page:   queryInt(r, "page"),
		Limit:  queryInt(r, "limit"),
	}

	items, meta, err := h.service.Query(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.ActivityListData{Items: items}, &meta)
}
