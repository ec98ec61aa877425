package handler

import (
	"net/http"

	"go-timetable-admin/internal/middleware"
	"go-timetable-admin/internal/model"
)

// actorFromRequest returns the caller of an authenticated route. Routes
// using it sit behind RequireAuth, so the zero identity only appears in
// tests that bypass the middleware.
func actorFromRequest(r *http.Request) model.Identity {
	if identity := middleware.IdentityFromRequest(r); identity != nil {
		return *identity
	}
	return model.Identity{IP: middleware.ClientIP(r)}
}
