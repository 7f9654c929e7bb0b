// Package ignore reads gitignore-style exclude files and matches
// slash-separated paths against "**" glob patterns.
//
// Only the subset directory ingestion needs is supported: comments, blank
// lines, anchored ("/dist") and unanchored ("*.log") patterns, and
// directory-only patterns ("build/"). Negations ("!keep.md") are ignored.
package ignore

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DefaultFiles are the exclude files read from an ingestion root.
var DefaultFiles = []string{".gitignore", ".mdsearchignore"}

// Parser reads exclude files from a directory.
type Parser struct {
	files []string
}

// NewParser creates a Parser for the named files. No names means DefaultFiles.
func NewParser(files ...string) *Parser {
	if len(files) == 0 {
		files = DefaultFiles
	}
	return &Parser{files: files}
}

// Load returns the patterns from every exclude file present in root, in file
// order and without duplicates. Missing files are skipped.
func (p *Parser) Load(root string) ([]string, error) {
	var patterns []string
	for _, name := range p.files {
		filePatterns, err := parseFile(filepath.Join(root, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		patterns = append(patterns, filePatterns...)
	}
	return deduplicate(patterns), nil
}

func parseFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, parseLine(scanner.Text())...)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return patterns, nil
}

// parseLine converts one exclude-file line to glob patterns. A name without
// a trailing slash matches both a file and everything under a directory of
// that name, so it yields two patterns.
func parseLine(line string) []string {
	line = strings.TrimRight(line, " \t")
	if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
		return nil
	}

	dirOnly := strings.HasSuffix(line, "/")
	line = strings.TrimSuffix(line, "/")
	if line == "" {
		return nil
	}

	anchored := strings.Contains(line, "/")
	line = strings.TrimPrefix(line, "/")
	if !anchored && !strings.HasPrefix(line, "**/") {
		line = "**/" + line
	}

	if dirOnly || strings.HasSuffix(line, "/**") {
		return []string{strings.TrimSuffix(line, "/**") + "/**"}
	}
	return []string{line, line + "/**"}
}

func deduplicate(patterns []string) []string {
	seen := make(map[string]bool, len(patterns))
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// Match reports whether the slash-separated path rel matches pattern.
// "**" matches zero or more whole path segments; other segments use
// path.Match syntax.
func Match(pattern, rel string) bool {
	return matchSegments(
		strings.Split(pattern, "/"),
		strings.Split(filepath.ToSlash(rel), "/"),
	)
}

func matchSegments(pat, segs []string) bool {
	for len(pat) > 0 {
		if pat[0] == "**" {
			if len(pat) == 1 {
				return true
			}
			for i := 0; i <= len(segs); i++ {
				if matchSegments(pat[1:], segs[i:]) {
					return true
				}
			}
			return false
		}
		if len(segs) == 0 {
			return false
		}
		if ok, _ := path.Match(pat[0], segs[0]); !ok {
			return false
		}
		pat, segs = pat[1:], segs[1:]
	}
	return len(segs) == 0
}

// Validate reports a malformed pattern.
func Validate(pattern string) error {
	for _, seg := range strings.Split(pattern, "/") {
		if seg == "**" {
			continue
		}
		if _, err := path.Match(seg, ""); err != nil {
			return fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
	}
	return nil
}
