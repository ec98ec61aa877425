//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-timetable-admin/internal/config"
	"go-timetable-admin/internal/database"
	"go-timetable-admin/internal/handler"
	"go-timetable-admin/internal/middleware"
	"go-timetable-admin/internal/repository"
	"go-timetable-admin/internal/router"
	"go-timetable-admin/internal/service"
	"go-timetable-admin/internal/storage"
)

const (
	adminUsername = "admin"
	adminPassword = "admin-password"
)

type testServer struct {
	*httptest.Server
	exportsDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, databaseURL, 4, 1)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.EnsureSchema(ctx))

	_, err = db.Pool.Exec(ctx, `TRUNCATE activity_logs, refresh_tokens, students, faculty, admin_profiles, users RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	exportsDir := filepath.Join(t.TempDir(), "exports")
	exportStore, err := storage.New(exportsDir)
	require.NoError(t, err)
	imageStore, err := storage.New(filepath.Join(t.TempDir(), "avatars"))
	require.NoError(t, err)

	cfg := &config.Config{
		RequestTimeout:      30 * time.Second,
		JWTSecret:           "test-secret",
		JWTAccessTTL:        15 * time.Minute,
		JWTRefreshTTL:       24 * time.Hour,
		SessionCookieName:   "session",
		CORSOrigins:         []string{"*"},
		RateLimitRPM:        0,
		AuthRateLimitRPM:    1000,
		ExportsDir:          exportsDir,
		ExportRetention:     7 * 24 * time.Hour,
		DownloadMaxDuration: time.Minute,
		DownloadIdleTimeout: 30 * time.Second,
		AllowedImageTypes:   []string{"image/jpeg", "image/png"},
		MaxUploadSize:       1 << 20,
	}

	userRepo := repository.NewUserRepository(db)
	activityRepo := repository.NewActivityRepository(db.Pool)
	tokenRepo := repository.NewTokenRepository(db.Pool)
	scopes := service.NewScopeCache(repository.NewProfileRepository(db.Pool), 0, 0)

	authService := service.NewAuthService(userRepo, tokenRepo, activityRepo, cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	require.NoError(t, authService.SeedDefaultAdmin(ctx, adminUsername, "admin@school.edu", adminPassword))

	images := service.NewProfileImageService(imageStore, userRepo, activityRepo, cfg.AllowedImageTypes)
	downloads := service.NewDownloadService(exportStore, scopes, activityRepo, service.DownloadOptions{
		Retention: cfg.ExportRetention,
		Accounts:  userRepo,
	})

	srv := httptest.NewServer(router.New(cfg, middleware.NewAuthMiddleware(authService, cfg.SessionCookieName), router.Handlers{
		Health:   handler.NewHealthHandler(db),
		Auth:     handler.NewAuthHandler(authService, handler.SessionCookie{Name: cfg.SessionCookieName, TTL: cfg.JWTAccessTTL}),
		Download: handler.NewDownloadHandler(downloads),
		Users:    handler.NewUserHandler(service.NewUserService(userRepo, tokenRepo, scopes, images, activityRepo)),
		Profile:  handler.NewProfileHandler(images, cfg.MaxUploadSize),
		Activity: handler.NewActivityHandler(service.NewActivityService(activityRepo)),
	}))
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, exportsDir: exportsDir}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string `json:"code"`
	} `json:"error"`
}

// login returns the access token and the session cookie set by the server.
func (s *testServer) login(t *testing.T, username string, password string) (string, *http.Cookie) {
	t.Helper()

	resp := s.postJSON(t, "/api/v1/auth/login", "", map[string]string{"login": username, "password": password})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	decodeData(t, resp, &tokens)

	for _, cookie := range resp.Cookies() {
		if cookie.Name == "session" {
			return tokens.AccessToken, cookie
		}
	}
	t.Fatal("login response carried no session cookie")
	return "", nil
}

func (s *testServer) postJSON(t *testing.T, path string, accessToken string, payload any) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, s.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return doRequest(t, req)
}

func (s *testServer) get(t *testing.T, path string, accessToken string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, s.URL+path, nil)
	require.NoError(t, err)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return doRequest(t, req)
}

func (s *testServer) writeExport(t *testing.T, name string, content string, age time.Duration) {
	t.Helper()

	path := filepath.Join(s.exportsDir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	modTime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, modTime, modTime))
}

func doRequest(t *testing.T, req *http.Request) *http.Response {
	t.Helper()

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeData(t *testing.T, resp *http.Response, dst any) {
	t.Helper()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.True(t, env.Success, fmt.Sprintf("error: %+v", env.Error))
	require.NoError(t, json.Unmarshal(env.Data, dst))
}
