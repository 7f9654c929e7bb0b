package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mdsearch/internal/ignore"
	"github.com/fyrsmithlabs/mdsearch/internal/retrieval"
)

// defaultSkipDirs are never descended into.
var defaultSkipDirs = map[string]bool{
	".git":         true,
	".svn":         true,
	".hg":          true,
	"node_modules": true,
	"vendor":       true,
	".venv":        true,
	"__pycache__":  true,
	".idea":        true,
	".vscode":      true,
	".cache":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
}

// DocumentIngester ingests one document and reports the records written.
type DocumentIngester interface {
	Ingest(ctx context.Context, text string) (int, error)
}

// Service ingests directory trees.
type Service struct {
	ingester DocumentIngester
	logger   *zap.Logger
}

// NewService creates a Service.
func NewService(ingester DocumentIngester, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{ingester: ingester, logger: logger}
}

// IndexDirectory walks root and ingests each matching file as a separate
// document. Empty, oversized and binary files are listed in Skipped. Any
// other ingestion error stops the walk; files already ingested stay stored.
func (s *Service) IndexDirectory(ctx context.Context, root string, opts IndexOptions) (*IndexResult, error) {
	cleanRoot, err := validatePath(root)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	if opts.MaxFileSize == 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.MaxFileSize < 0 || opts.MaxFileSize > MaxFileSizeLimit {
		return nil, fmt.Errorf("max file size must be between 1 and %d bytes", MaxFileSizeLimit)
	}
	if len(opts.IncludePatterns) == 0 {
		opts.IncludePatterns = DefaultIncludePatterns
	}
	if err := validatePatterns(opts.IncludePatterns); err != nil {
		return nil, fmt.Errorf("invalid include pattern: %w", err)
	}
	if err := validatePatterns(opts.ExcludePatterns); err != nil {
		return nil, fmt.Errorf("invalid exclude pattern: %w", err)
	}
	if len(opts.IgnoreFiles) > 0 {
		ignored, err := ignore.NewParser(opts.IgnoreFiles...).Load(cleanRoot)
		if err != nil {
			return nil, err
		}
		opts.ExcludePatterns = append(slices.Clone(opts.ExcludePatterns), ignored...)
	}

	res := &IndexResult{Root: cleanRoot, Files: []FileResult{}}

	err = filepath.WalkDir(cleanRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != cleanRoot && defaultSkipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(cleanRoot, path)
		if err != nil {
			return fmt.Errorf("computing relative path: %w", err)
		}
		if !matches(rel, opts) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", rel, err)
		}
		if info.Size() > opts.MaxFileSize {
			s.skip(res, rel, "file too large")
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", rel, err)
		}
		if !utf8.Valid(content) {
			s.skip(res, rel, "not valid UTF-8")
			return nil
		}

		if len(bytes.TrimSpace(content)) == 0 {
			s.skip(res, rel, "empty document")
			return nil
		}

		n, err := s.ingester.Ingest(ctx, string(content))
		if errors.Is(err, retrieval.ErrEmptyDocument) {
			s.skip(res, rel, "empty document")
			return nil
		}
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", rel, err)
		}

		s.logger.Debug("ingested file", zap.String("path", rel), zap.Int("records", n))
		res.Files = append(res.Files, FileResult{Path: rel, Records: n})
		res.Records += n
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("walking %s: %w", cleanRoot, err)
	}

	res.IndexedAt = time.Now().UTC()
	s.logger.Info("indexed directory",
		zap.String("root", cleanRoot),
		zap.Int("files", len(res.Files)),
		zap.Int("records", res.Records),
		zap.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

func (s *Service) skip(res *IndexResult, rel, reason string) {
	s.logger.Debug("skipping file", zap.String("path", rel), zap.String("reason", reason))
	res.Skipped = append(res.Skipped, rel)
}

func validatePath(path string) (string, error) {
	if path == "" {
		return "", errors.New("path cannot be empty")
	}
	clean := filepath.Clean(path)

	info, err := os.Stat(clean)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("path does not exist: %s", clean)
		}
		return "", fmt.Errorf("stat path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("path must be a directory: %s", clean)
	}
	return clean, nil
}

func validatePatterns(patterns []string) error {
	for _, p := range patterns {
		if err := ignore.Validate(p); err != nil {
			return err
		}
	}
	return nil
}

// matches applies exclude then include patterns to a root-relative path.
// Patterns without a slash are matched against the file name alone.
func matches(rel string, opts IndexOptions) bool {
	for _, p := range opts.ExcludePatterns {
		if match(p, rel) {
			return false
		}
	}
	for _, p := range opts.IncludePatterns {
		if match(p, rel) {
			return true
		}
	}
	return false
}

func match(pattern, rel string) bool {
	if !strings.Contains(pattern, "/") {
		return ignore.Match(pattern, filepath.Base(rel))
	}
	return ignore.Match(pattern, rel)
}
