package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPathValidatorResolveName(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	validator, err := NewPathValidator(root)
	require.NoError(t, err)

	t.Run("plain name resolves inside root", func(t *testing.T) {
		resolved, resolveErr := validator.ResolveName("admin_users_2024_03_01_10_00_00.csv")
		require.NoError(t, resolveErr)
		require.Equal(t, filepath.Join(validator.RootAbs(), "admin_users_2024_03_01_10_00_00.csv"), resolved)
	})

	t.Run("separators are rejected", func(t *testing.T) {
		_, resolveErr := validator.ResolveName("../etc/passwd")
		require.Error(t, resolveErr)

		_, resolveErr = validator.ResolveName(`reports\secret.pdf`)
		require.Error(t, resolveErr)
	})

	t.Run("dot names are rejected", func(t *testing.T) {
		_, resolveErr := validator.ResolveName("..")
		require.Error(t, resolveErr)

		_, resolveErr = validator.ResolveName("")
		require.Error(t, resolveErr)
	})

	t.Run("control characters are rejected", func(t *testing.T) {
		_, resolveErr := validator.ResolveName("report\n.pdf")
		require.Error(t, resolveErr)

		_, resolveErr = validator.ResolveName("report\x00.pdf")
		require.Error(t, resolveErr)
	})

	t.Run("root itself is not a file", func(t *testing.T) {
		require.False(t, isWithinRoot("/srv/exports", "/srv/exports"))
		require.False(t, isWithinRoot("/srv/exports", "/srv/exports-old/file.pdf"))
		require.True(t, isWithinRoot("/srv/exports", "/srv/exports/file.pdf"))
	})
}
