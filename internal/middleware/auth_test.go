package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-timetable-admin/internal/model"
)

type stubValidator struct {
	tokens map[string]*model.AuthClaims
}

func (s stubValidator) ValidateToken(token string, expectedType string) (*model.AuthClaims, error) {
	claims, ok := s.tokens[token]
	if !ok || claims.Type != expectedType {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func newTestAuth() *AuthMiddleware {
	return NewAuthMiddleware(stubValidator{tokens: map[string]*model.AuthClaims{
		"admin-token":   {UserID: 1, Username: "root", Role: "admin", Type: "access"},
		"student-token": {UserID: 20, Username: "sam", Role: "student", Type: "access"},
		"refresh-token": {UserID: 1, Role: "admin", Type: "refresh"},
	}}, "session")
}

func identityEcho(t *testing.T, got **model.Identity) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = IdentityFromRequest(r)
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireAuthAcceptsBearerAndCookie(t *testing.T) {
	auth := newTestAuth()
	var identity *model.Identity
	handler := auth.RequireAuth(identityEcho(t, &identity))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer admin-token")
	req.RemoteAddr = "192.0.2.1:5555"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, identity)
	assert.Equal(t, int64(1), identity.UserID)
	assert.Equal(t, "192.0.2.1", identity.IP)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "student-token"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "student", identity.Role)
}

func TestRequireAuthRejects(t *testing.T) {
	auth := newTestAuth()
	handler := auth.RequireAuth(okHandler())

	for name, setup := range map[string]func(*http.Request){
		"no credentials": func(*http.Request) {},
		"unknown token":  func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") },
		"refresh token":  func(r *http.Request) { r.Header.Set("Authorization", "Bearer refresh-token") },
		"basic scheme":   func(r *http.Request) { r.Header.Set("Authorization", "Basic admin-token") },
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			setup(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), `"success":false`)
		})
	}
}

func TestOptionalAuthPassesAnonymousThrough(t *testing.T) {
	auth := newTestAuth()
	var identity *model.Identity
	handler := auth.OptionalAuth(identityEcho(t, &identity))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download?file=x", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, identity)

	req := httptest.NewRequest(http.MethodGet, "/download?file=x", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "garbage"})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, identity)
}

func TestRequireRoles(t *testing.T) {
	auth := newTestAuth()
	handler := auth.RequireAuth(auth.RequireRoles(model.RoleAdmin)(okHandler()))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	req.Header.Set("Authorization", "Bearer student-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
	req.Header.Set("Authorization", "bearer admin-token")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
