package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-timetable-admin/internal/storage"
)

func TestExportSweeperRemovesOnlyExpiredExports(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.New(dir)
	require.NoError(t, err)

	write := func(name string, age time.Duration) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))
		modTime := testNow.Add(-age)
		require.NoError(t, os.Chtimes(path, modTime, modTime))
		return path
	}

	stale := write("admin_users_2024_03_01_10_00_00.csv", 8*24*time.Hour)
	fresh := write("student_schedule_42_2024_03_09_10_00_00.pdf", time.Hour)
	foreign := write("readme.txt", 30*24*time.Hour)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "system_backup_2024_01_01_00_00_00.zip"), 0o755))

	sweeper := NewExportSweeper(store, 7*24*time.Hour)
	sweeper.now = func() time.Time { return testNow }

	removed, err := sweeper.Sweep()
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	require.NoFileExists(t, stale)
	require.FileExists(t, fresh)
	require.FileExists(t, foreign)
	require.DirExists(t, filepath.Join(dir, "system_backup_2024_01_01_00_00_00.zip"))
}

func TestExportSweeperStartStopsOnCancel(t *testing.T) {
	store, err := storage.New(t.TempDir())
	require.NoError(t, err)

	sweeper := NewExportSweeper(store, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		sweeper.Start(ctx, 10*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}

	// Zero interval returns immediately.
	sweeper.Start(context.Background(), 0)
}
