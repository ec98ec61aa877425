package handler

import (
	"net/http"
	"strings"
	"time"

	"go-timetable-admin/internal/middleware"
	"go-timetable-admin/internal/model"
	"go-timetable-admin/internal/service"
	"go-timetable-admin/pkg/apierror"
)

// SessionCookie configures the cookie that carries the access token for
// browser requests such as export downloads.
type SessionCookie struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

type AuthHandler struct {
	service *service.AuthService
	cookie  SessionCookie
}

func NewAuthHandler(service *service.AuthService, cookie SessionCookie) *AuthHandler {
	return &AuthHandler{service: service, cookie: cookie}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	tokens, err := h.service.Login(r.Context(), payload.Login, payload.Password, middleware.ClientIP(r))
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, tokens.AccessToken, h.cookie.TTL)
	writeSuccess(w, http.StatusOK, tokens, nil)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var payload model.RefreshRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	payload.RefreshToken = strings.TrimSpace(payload.RefreshToken)
	if payload.RefreshToken == "" {
		writeError(w, apierror.New("BAD_REQUEST", "refresh_token is required", "refresh_token", http.StatusBadRequest))
		return
	}

	tokens, err := h.service.Refresh(r.Context(), payload.RefreshToken)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, tokens.AccessToken, h.cookie.TTL)
	writeSuccess(w, http.StatusOK, tokens, nil)
}

// Logout always clears the cookie; the refresh token in the body is optional.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var payload model.RefreshRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, err)
			return
		}
	}

	if err := h.service.Logout(r.Context(), strings.TrimSpace(payload.RefreshToken)); err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, "", -1)
	writeSuccess(w, http.StatusOK, map[string]any{"logged_out": true}, nil)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorized)
		return
	}

	user, err := h.service.GetUser(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user, nil)
}

// setSessionCookie writes the cookie; a negative ttl deletes it.
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, value string, ttl time.Duration) {
	cookie := &http.Cookie{
		Name:     h.cookie.Name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		cookie.MaxAge = -1
	} else {
		cookie.MaxAge = int(ttl.Seconds())
	}

	http.SetCookie(w, cookie)
}
