package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "postgres://localhost/timetable")
	t.Setenv("EXPORT_RETENTION", "")
	t.Setenv("EXPORT_DELETE_AFTER_DOWNLOAD", "")
	t.Setenv("EXPORT_SWEEP_INTERVAL", "")
	t.Setenv("ALLOWED_IMAGE_TYPES", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 7*24*time.Hour, cfg.ExportRetention)
	require.False(t, cfg.ExportDeleteAfterDownload)
	require.Zero(t, cfg.ExportSweepInterval)
	require.Equal(t, []string{"image/jpeg", "image/png", "image/gif", "image/webp"}, cfg.AllowedImageTypes)
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/timetable")

	_, err := Load()
	require.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("DATABASE_URL", "")

	_, err = Load()
	require.ErrorContains(t, err, "DATABASE_URL")
}

func TestTypedGettersFallBack(t *testing.T) {
	t.Setenv("CFG_TEST_BOOL", "nope")
	t.Setenv("CFG_TEST_DURATION", "ten minutes")
	t.Setenv("CFG_TEST_LEVEL", "debug")

	require.True(t, getBool("CFG_TEST_BOOL", true))
	require.Equal(t, time.Minute, getDuration("CFG_TEST_DURATION", time.Minute))
	require.Equal(t, slog.LevelDebug, getLevel("CFG_TEST_LEVEL", slog.LevelInfo))
	require.Equal(t, []string{"a", "b"}, splitCSV(" a, ,b "))
}
