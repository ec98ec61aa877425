package service

import (
	"context"
	"log/slog"
	"time"

	"go-timetable-admin/internal/storage"
)

// ExportSweeper deletes expired exports nobody asked for. It is off unless
// an interval is configured; on-access expiry in DownloadService still applies.
type ExportSweeper struct {
	store     storage.Store
	retention time.Duration
	now       func() time.Time
}

func NewExportSweeper(store storage.Store, retention time.Duration) *ExportSweeper {
	return &ExportSweeper{store: store, retention: retention, now: time.Now}
}

// Sweep removes regular files shaped like exports whose age exceeds the
// retention window and returns how many were deleted.
func (s *ExportSweeper) Sweep() (int, error) {
	entries, err := s.store.ReadDir()
	if err != nil {
		return 0, err
	}

	now := s.now()
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !IsExportName(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if now.Sub(info.ModTime()) <= s.retention {
			continue
		}

		if err := s.store.Remove(entry.Name()); err != nil {
			slog.Warn("export sweep: failed to delete", "file", entry.Name(), "error", err)
			continue
		}
		removed++
	}

	if removed > 0 {
		exportsPurgedTotal.WithLabelValues("sweep").Add(float64(removed))
		slog.Info("export sweep removed expired files", "count", removed)
	}

	return removed, nil
}

// Start runs Sweep once, then every interval until ctx is cancelled.
func (s *ExportSweeper) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.sweepLogged()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepLogged()
		}
	}
}

func (s *ExportSweeper) sweepLogged() {
	if _, err := s.Sweep(); err != nil {
		slog.Warn("export sweep failed", "error", err)
	}
}
