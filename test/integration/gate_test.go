//go:build integration

package integration

import (
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-timetable-admin/internal/model"
)

func createStudent(t *testing.T, s *testServer, adminToken string, username string) model.User {
	t.Helper()

	resp := s.postJSON(t, "/api/v1/admin/users", adminToken, map[string]any{
		"username":   username,
		"email":      username + "@school.edu",
		"password":   "student-password",
		"first_name": "Test",
		"last_name":  "Student",
		"role":       "student",
		"profile":    map[string]any{"student_number": "S-" + username, "year_level": 2},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var user model.User
	decodeData(t, resp, &user)
	require.NotNil(t, user.Student)
	return user
}

func TestStudentDownloadsOwnScheduleWithSessionCookie(t *testing.T) {
	s := newTestServer(t)
	adminToken, _ := s.login(t, adminUsername, adminPassword)

	student := createStudent(t, s, adminToken, "maria")
	other := createStudent(t, s, adminToken, "pedro")

	own := fmt.Sprintf("student_schedule_%d_2024_03_01_10_00_00.pdf", student.Student.ID)
	foreign := fmt.Sprintf("student_schedule_%d_2024_03_01_10_00_00.pdf", other.Student.ID)
	s.writeExport(t, own, "%PDF-own", time.Hour)
	s.writeExport(t, foreign, "%PDF-foreign", time.Hour)

	_, session := s.login(t, "maria", "student-password")

	req, err := http.NewRequest(http.MethodGet, s.URL+"/download?file="+own, nil)
	require.NoError(t, err)
	req.AddCookie(session)
	resp := doRequest(t, req)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-own", string(body))
	assert.Equal(t, `attachment; filename="`+own+`"`, resp.Header.Get("Content-Disposition"))

	req, err = http.NewRequest(http.MethodGet, s.URL+"/api/v1/exports/download?file="+foreign, nil)
	require.NoError(t, err)
	req.AddCookie(session)
	denied := doRequest(t, req)
	defer denied.Body.Close()

	require.Equal(t, http.StatusForbidden, denied.StatusCode)
	body, err = io.ReadAll(denied.Body)
	require.NoError(t, err)
	assert.Equal(t, "Access denied", string(body))

	activity := s.get(t, "/api/v1/admin/activity?action=FILE_DOWNLOAD", adminToken)
	defer activity.Body.Close()
	require.Equal(t, http.StatusOK, activity.StatusCode)

	var page model.ActivityListData
	decodeData(t, activity, &page)
	entries := page.Items
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].UserID)
	assert.Equal(t, student.ID, *entries[0].UserID)
	assert.Contains(t, entries[0].Description, own)
}

func TestDeactivatedStudentCannotLogin(t *testing.T) {
	s := newTestServer(t)
	adminToken, _ := s.login(t, adminUsername, adminPassword)
	student := createStudent(t, s, adminToken, "lucas")

	resp := s.postJSON(t, fmt.Sprintf("/api/v1/admin/users/%d/deactivate", student.ID), adminToken, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	login := s.postJSON(t, "/api/v1/auth/login", "", map[string]string{"login": "lucas", "password": "student-password"})
	defer login.Body.Close()
	assert.Equal(t, http.StatusForbidden, login.StatusCode)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	s := newTestServer(t)
	adminToken, _ := s.login(t, adminUsername, adminPassword)
	createStudent(t, s, adminToken, "ana")
	studentToken, _ := s.login(t, "ana", "student-password")

	forbidden := s.get(t, "/api/v1/admin/users", studentToken)
	forbidden.Body.Close()
	assert.Equal(t, http.StatusForbidden, forbidden.StatusCode)

	anonymous := s.get(t, "/api/v1/admin/users", "")
	anonymous.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, anonymous.StatusCode)

	health := s.get(t, "/health", "")
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestDeactivatedStudentSessionLosesGateAccess(t *testing.T) {
	s := newTestServer(t)
	adminToken, _ := s.login(t, adminUsername, adminPassword)
	student := createStudent(t, s, adminToken, "sofia")

	name := fmt.Sprintf("student_schedule_%d_2024_03_01_10_00_00.pdf", student.Student.ID)
	s.writeExport(t, name, "%PDF-own", time.Hour)
	_, session := s.login(t, "sofia", "student-password")

	resp := s.postJSON(t, fmt.Sprintf("/api/v1/admin/users/%d/deactivate", student.ID), adminToken, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, s.URL+"/download?file="+name, nil)
	require.NoError(t, err)
	req.AddCookie(session)
	denied := doRequest(t, req)
	defer denied.Body.Close()

	assert.Equal(t, http.StatusForbidden, denied.StatusCode)
	assert.FileExists(t, s.exportsDir+"/"+name)
}
