package model

import "time"

// ExportArtifact is a generated report or backup waiting in the exports directory.
type ExportArtifact struct {
	Filename  string
	Path      string
	Extension string
	MimeType  string
	SizeBytes int64
	ModTime   time.Time
}
