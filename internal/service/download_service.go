package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"go-timetable-admin/internal/model"
	"go-timetable-admin/internal/storage"
	"go-timetable-admin/internal/util"
	"go-timetable-admin/pkg/apierror"
)

// Download gate failures. Messages are shown to the client verbatim.
var (
	ErrDownloadUnauthenticated = apierror.New("UNAUTHENTICATED", "Access denied", "", http.StatusForbidden)
	ErrDownloadInvalidRole     = apierror.New("INVALID_ROLE", "Invalid user role", "", http.StatusForbidden)
	ErrDownloadMissingFile     = apierror.New("MISSING_FILE", "No file specified", "", http.StatusBadRequest)
	ErrDownloadNoProfile       = apierror.New("PROFILE_NOT_FOUND", "Access denied", "", http.StatusForbidden)
	ErrDownloadNotAllowed      = apierror.New("ACCESS_DENIED", "Access denied", "", http.StatusForbidden)
	ErrDownloadNotFound        = apierror.New("NOT_FOUND", "File not found", "", http.StatusNotFound)
	ErrDownloadNotReadable     = apierror.New("NOT_READABLE", "File not accessible", "", http.StatusForbidden)
	ErrDownloadExpired         = apierror.New("EXPIRED", "File has expired", "", http.StatusGone)
)

type ScopeResolver interface {
	ResolveScopeID(ctx context.Context, userID int64, role model.Role) (int64, error)
}

type ActivityLogger interface {
	Log(ctx context.Context, entry model.ActivityEntry) error
}

// AccountLookup re-reads the caller's account, so a token issued before a
// deactivation or deletion stops opening exports at once.
type AccountLookup interface {
	FindByID(ctx context.Context, id int64) (model.User, error)
}

type DownloadOptions struct {
	Retention           time.Duration
	DeleteAfterDownload bool
	Accounts            AccountLookup
	Now                 func() time.Time
}

type DownloadService struct {
	store               storage.Store
	scopes              ScopeResolver
	activity            ActivityLogger
	accounts            AccountLookup
	retention           time.Duration
	deleteAfterDownload bool
	now                 func() time.Time
}

func NewDownloadService(store storage.Store, scopes ScopeResolver, activity ActivityLogger, opts DownloadOptions) *DownloadService {
	if opts.Retention <= 0 {
		opts.Retention = 7 * 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &DownloadService{
		store:               store,
		scopes:              scopes,
		activity:            activity,
		accounts:            opts.Accounts,
		retention:           opts.Retention,
		deleteAfterDownload: opts.DeleteAfterDownload,
		now:                 opts.Now,
	}
}

// Download is an authorized, opened export ready to be streamed.
type Download struct {
	File     *os.File
	Artifact model.ExportArtifact
}

// Authorize checks that identity may fetch filename. It touches neither the
// file system nor the audit log.
func (s *DownloadService) Authorize(ctx context.Context, identity *model.Identity, filename string) error {
	if identity == nil || identity.UserID <= 0 {
		return ErrDownloadUnauthenticated
	}
	if err := s.checkAccount(ctx, identity.UserID); err != nil {
		return err
	}

	role, ok := model.ParseRole(identity.Role)
	if !ok {
		return ErrDownloadInvalidRole
	}

	if filename == "" {
		return ErrDownloadMissingFile
	}

	var scopeID int64
	if role != model.RoleAdmin {
		id, err := s.scopes.ResolveScopeID(ctx, identity.UserID, role)
		if errors.Is(err, model.ErrProfileNotFound) {
			slog.Warn("download denied: no role profile", "user_id", identity.UserID, "role", role)
			return ErrDownloadNoProfile
		}
		if err != nil {
			return fmt.Errorf("resolve %s scope: %w", role, err)
		}
		scopeID = id
	}

	if !MatchAllowList(AllowList(role, scopeID), filename) {
		slog.Warn("security: unauthorized download attempt",
			"user_id", identity.UserID,
			"role", role,
			"file", filename,
			"client_ip", identity.IP,
		)
		return ErrDownloadNotAllowed
	}

	return nil
}

// Prepare authorizes the request, opens the export, enforces retention and
// records the download. The caller owns the returned file.
func (s *DownloadService) Prepare(ctx context.Context, identity *model.Identity, filename string) (*Download, error) {
	if err := s.Authorize(ctx, identity, filename); err != nil {
		downloadsTotal.WithLabelValues(resultLabel(err)).Inc()
		return nil, err
	}

	download, err := s.open(filename)
	if err != nil {
		downloadsTotal.WithLabelValues(resultLabel(err)).Inc()
		return nil, err
	}

	// Audit is best-effort: a failed insert must not block the download.
	_ = s.recordDownload(ctx, identity, download.Artifact)

	return download, nil
}

// Complete is called after the body was streamed. A short write counts as
// an interrupted transfer and never triggers delete-after-download.
func (s *DownloadService) Complete(download *Download, written int64) {
	downloadBytesTotal.Add(float64(written))

	if written != download.Artifact.SizeBytes {
		downloadsTotal.WithLabelValues("interrupted").Inc()
		slog.Warn("export transfer interrupted", "file", download.Artifact.Filename, "written", written, "size", download.Artifact.SizeBytes)
		return
	}
	downloadsTotal.WithLabelValues("success").Inc()

	if !s.deleteAfterDownload {
		return
	}

	if err := s.store.Remove(download.Artifact.Filename); err != nil {
		slog.Warn("failed to delete export after download", "file", download.Artifact.Filename, "error", err)
		return
	}
	exportsPurgedTotal.WithLabelValues("downloaded").Inc()
}

func (s *DownloadService) open(filename string) (*Download, error) {
	info, err := s.store.Stat(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrDownloadNotFound
		}
		if errors.Is(err, fs.ErrPermission) {
			return nil, ErrDownloadNotReadable
		}
		return nil, fmt.Errorf("stat export: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, ErrDownloadNotFound
	}

	file, err := s.store.OpenForRead(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrDownloadNotFound
		}
		if errors.Is(err, fs.ErrPermission) {
			return nil, ErrDownloadNotReadable
		}
		return nil, fmt.Errorf("open export: %w", err)
	}

	if s.isExpired(info.ModTime()) {
		_ = file.Close()
		if removeErr := s.store.Remove(filename); removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) {
			slog.Warn("failed to delete expired export", "file", filename, "error", removeErr)
		} else {
			exportsPurgedTotal.WithLabelValues("access").Inc()
			slog.Info("expired export deleted on access", "file", filename, "modified_at", info.ModTime())
		}
		return nil, ErrDownloadExpired
	}

	extension := util.Extension(filename)
	return &Download{
		File: file,
		Artifact: model.ExportArtifact{
			Filename:  filename,
			Path:      file.Name(),
			Extension: extension,
			MimeType:  util.ExportMIMEType(extension),
			SizeBytes: info.Size(),
			ModTime:   info.ModTime(),
		},
	}, nil
}

func (s *DownloadService) checkAccount(ctx context.Context, userID int64) error {
	if s.accounts == nil {
		return nil
	}

	user, err := s.accounts.FindByID(ctx, userID)
	if errors.Is(err, model.ErrUserNotFound) {
		slog.Warn("download denied: account no longer exists", "user_id", userID)
		return ErrDownloadUnauthenticated
	}
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if user.Status != model.StatusActive {
		slog.Warn("download denied: account not active", "user_id", userID, "status", user.Status)
		return ErrDownloadUnauthenticated
	}
	return nil
}

// isExpired treats a file exactly Retention old as still valid.
func (s *DownloadService) isExpired(modTime time.Time) bool {
	return s.now().Sub(modTime) > s.retention
}

func (s *DownloadService) recordDownload(ctx context.Context, identity *model.Identity, artifact model.ExportArtifact) error {
	if s.activity == nil {
		return nil
	}

	userID := identity.UserID
	err := s.activity.Log(ctx, model.ActivityEntry{
		UserID:      &userID,
		Action:      model.ActionFileDownload,
		Description: fmt.Sprintf("Downloaded file: %s (%s)", artifact.Filename, util.FormatBytes(artifact.SizeBytes)),
		IPAddress:   identity.IP,
		Timestamp:   s.now().UTC(),
	})
	if err != nil {
		slog.Warn("failed to record download activity", "user_id", userID, "file", artifact.Filename, "error", err)
	}
	return err
}

func resultLabel(err error) string {
	var apiErr *apierror.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatus {
		case http.StatusBadRequest:
			return "bad_request"
		case http.StatusNotFound:
			return "not_found"
		case http.StatusGone:
			return "expired"
		default:
			return "denied"
		}
	}
	return "error"
}
