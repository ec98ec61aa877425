package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-timetable-admin/internal/middleware"
	"go-timetable-admin/internal/model"
	"go-timetable-admin/internal/service"
	"go-timetable-admin/pkg/apierror"
)

type singleUserStore struct {
	user model.User
}

func (s *singleUserStore) FindByID(_ context.Context, id int64) (model.User, error) {
	if id != s.user.ID {
		return model.User{}, model.ErrUserNotFound
	}
	return s.user, nil
}

func (s *singleUserStore) FindByLogin(_ context.Context, login string) (model.User, error) {
	if !strings.EqualFold(login, s.user.Username) {
		return model.User{}, model.ErrUserNotFound
	}
	return s.user, nil
}

func (s *singleUserStore) Create(context.Context, model.User, model.ProfileFields) (model.User, error) {
	return model.User{}, errors.New("not supported")
}

func (s *singleUserStore) TouchLastLogin(context.Context, int64, time.Time) error { return nil }

func (s *singleUserStore) Count(context.Context) (int, error) { return 1, nil }

type noopTokens struct{}

func (noopTokens) Store(context.Context, string, int64, time.Time) error { return nil }
func (noopTokens) Consume(context.Context, string) (int64, error) { return 0, model.ErrTokenNotFound }
func (noopTokens) Revoke(context.Context, string) error { return nil }

func newAuthTestService(t *testing.T, status model.Status) *service.AuthService {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	require.NoError(t, err)

	users := &singleUserStore{user: model.User{
		ID: 20, Username: "sam", Email: "sam@school.edu", PasswordHash: string(hash),
		Role: model.RoleStudent, Status: status,
	}}
	return service.NewAuthService(users, noopTokens{}, nil, "secret", 15*time.Minute, time.Hour)
}

func TestLoginSetsSessionCookieUsableByAuth(t *testing.T) {
	svc := newAuthTestService(t, model.StatusActive)
	h := NewAuthHandler(svc, SessionCookie{Name: "session", TTL: 15 * time.Minute})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"login":"sam","password":"correct-horse"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	session := cookies[0]
	assert.Equal(t, "session", session.Name)
	assert.True(t, session.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, session.SameSite)

	var identity *model.Identity
	protected := middleware.NewAuthMiddleware(svc, "session").RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity = middleware.IdentityFromRequest(r)
	}))
	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(session)
	protected.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, identity)
	assert.Equal(t, int64(20), identity.UserID)
	assert.Equal(t, "student", identity.Role)
}

func TestLoginErrorsUseJSONEnvelope(t *testing.T) {
	cases := []struct {
		name   string
		status model.Status
		body   string
		code   int
		errKey string
	}{
		{"bad password", model.StatusActive, `{"login":"sam","password":"nope"}`, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"pending", model.StatusPending, `{"login":"sam","password":"correct-horse"}`, http.StatusForbidden, "ACCOUNT_PENDING"},
		{"inactive", model.StatusInactive, `{"login":"sam","password":"correct-horse"}`, http.StatusForbidden, "ACCOUNT_DISABLED"},
		{"malformed", model.StatusActive, `{"login":`, http.StatusBadRequest, "BAD_REQUEST"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewAuthHandler(newAuthTestService(t, tc.status), SessionCookie{Name: "session"})

			rec := httptest.NewRecorder()
			h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(tc.body)))

			require.Equal(t, tc.code, rec.Code)
			var resp model.APIResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tc.errKey, resp.Error.Code)
			assert.Empty(t, rec.Result().Cookies())
		})
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	h := NewAuthHandler(newAuthTestService(t, model.StatusActive), SessionCookie{Name: "session"})

	rec := httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestWriteErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{model.ErrUserNotFound, http.StatusNotFound},
		{model.ErrInvalidTransition, http.StatusConflict},
		{model.ErrSelfAction, http.StatusBadRequest},
		{model.ErrForbidden, http.StatusForbidden},
		{apierror.Conflict("username already in use", "username"), http.StatusConflict},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, tc.err)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}
