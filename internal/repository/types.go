package repository

import "time"

const (
	// DefaultMaxFileSize is the per-file size limit when none is given.
	DefaultMaxFileSize int64 = 1 << 20

	// MaxFileSizeLimit caps IndexOptions.MaxFileSize.
	MaxFileSizeLimit int64 = 10 << 20
)

// DefaultIncludePatterns select markdown and plain text files.
var DefaultIncludePatterns = []string{"*.md", "*.markdown", "*.txt"}

// IndexOptions configures a directory ingestion run.
type IndexOptions struct {
	// IncludePatterns select files to ingest. Empty means DefaultIncludePatterns.
	IncludePatterns []string

	// ExcludePatterns reject files and take precedence over includes.
	ExcludePatterns []string

	// MaxFileSize in bytes. Zero means DefaultMaxFileSize.
	MaxFileSize int64

	// IgnoreFiles are gitignore-style files read from the root; their
	// patterns are added to ExcludePatterns.
	IgnoreFiles []string
}

// FileResult reports one ingested file.
type FileResult struct {
	Path    string `json:"path"`
	Records int    `json:"records"`
}

// IndexResult summarizes a directory ingestion run.
type IndexResult struct {
	Root      string       `json:"root"`
	Files     []FileResult `json:"files"`
	Records   int          `json:"records"`
	Skipped   []string     `json:"skipped,omitempty"`
	IndexedAt time.Time    `json:"indexed_at"`
}
