package domain

import (
	"context"
	"time"
)

// SourceRepository defines the interface for reading the external repository (e.g., GitHub).
// This allows the application to be decoupled from a specific implementation.
type SourceRepository interface {
	// ListFiles returns the paths of the file entries directly under dir.
	ListFiles(ctx context.Context, dir string) ([]string, error)
	// GetFileContents returns the raw bytes of one file.
	GetFileContents(ctx context.Context, path string) ([]byte, error)
	// GetFileCommitDates returns the committer dates of the most recent commits
	// touching path, newest first, at most limit entries.
	GetFileCommitDates(ctx context.Context, path string, limit int) ([]time.Time, error)
	GetRepoFullName() string
}

// PageInvalidator marks rendered pages as stale.
type PageInvalidator interface {
	InvalidateIndex(ctx context.Context) error
	InvalidatePost(ctx context.Context, slug string) error
}
