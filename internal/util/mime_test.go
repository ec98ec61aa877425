package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExportMIMEType(t *testing.T) {
	t.Parallel()

	require.Equal(t, "application/pdf", ExportMIMEType("pdf"))
	require.Equal(t, "text/csv", ExportMIMEType(" CSV "))
	require.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", ExportMIMEType("xlsx"))
	require.Equal(t, "application/zip", ExportMIMEType("zip"))
	require.Equal(t, "application/sql", ExportMIMEType("sql"))
	require.Equal(t, DefaultMIMEType, ExportMIMEType("exe"))
	require.Equal(t, DefaultMIMEType, ExportMIMEType(""))
}

func TestExtension(t *testing.T) {
	t.Parallel()

	require.Equal(t, "pdf", Extension("student_schedule_42_2024_03_01_10_00_00.PDF"))
	require.Equal(t, "", Extension("README"))
}

func TestSniffMIME(t *testing.T) {
	t.Parallel()

	require.Equal(t, "image/png", SniffMIME([]byte("\x89PNG\r\n\x1a\n")))
	require.Equal(t, "text/plain", SniffMIME([]byte("hello")))
	require.True(t, IsImageMIME("image/gif"))
	require.False(t, IsImageMIME("application/pdf"))
}

func TestFormatBytes(t *testing.T) {
	t.Parallel()

	require.Equal(t, "512 B", FormatBytes(512))
	require.Equal(t, "1.5 KB", FormatBytes(1536))
	require.Equal(t, "2.0 MB", FormatBytes(2*1024*1024))
}
