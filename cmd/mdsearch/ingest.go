package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/mdsearch/internal/ignore"
	"github.com/fyrsmithlabs/mdsearch/internal/repository"
)

// ingestExtensions are the file types accepted as explicit arguments.
var ingestExtensions = []string{".md", ".markdown", ".txt"}

type ingestOptions struct {
	text        string
	dir         string
	include     []string
	exclude     []string
	maxFileSize int64
	noIgnore    bool
}

func newIngestCmd(g *globalOptions) *cobra.Command {
	opts := &ingestOptions{}

	cmd := &cobra.Command{
		Use:   "ingest [FILE...]",
		Short: "Chunk, embed and store markdown documents",
		Long: `Ingest markdown documents. Each document is split on "## " headings,
every chunk is embedded, and all chunks are stored in one batch.

Input is one of:
  FILE...      markdown or text files; "-" reads stdin
  --text TEXT  a literal document (surrounding whitespace is trimmed)
  --dir DIR    every matching file under DIR, one document per file

Examples:
  mdsearch ingest README.md CHANGELOG.md
  cat notes.md | mdsearch ingest -
  mdsearch ingest --text "## Todo\nship it"
  mdsearch ingest --dir ./docs --include "*.md" --exclude "archive/**"

With --dir, patterns from .gitignore and .mdsearchignore in DIR are
excluded as well unless --no-ignore is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, g, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.text, "text", "", "ingest TEXT as a single document")
	f.StringVar(&opts.dir, "dir", "", "ingest every matching file under DIR")
	f.StringSliceVar(&opts.include, "include", nil, "glob patterns to include with --dir (default *.md,*.markdown,*.txt)")
	f.StringSliceVar(&opts.exclude, "exclude", nil, "glob patterns to exclude with --dir")
	f.Int64Var(&opts.maxFileSize, "max-file-size", repository.DefaultMaxFileSize, "skip files larger than this many bytes with --dir")
	f.BoolVar(&opts.noIgnore, "no-ignore", false, "do not read .gitignore and .mdsearchignore with --dir")
	return cmd
}

func (o *ingestOptions) validate(args []string) error {
	sources := 0
	if len(args) > 0 {
		sources++
	}
	if o.text != "" {
		sources++
	}
	if o.dir != "" {
		sources++
	}
	switch {
	case sources == 0:
		return errors.New("nothing to ingest: pass files, --text or --dir")
	case sources > 1:
		return errors.New("pass only one of files, --text or --dir")
	}
	if o.dir == "" && (len(o.include) > 0 || len(o.exclude) > 0) {
		return errors.New("--include and --exclude require --dir")
	}
	for _, a := range args {
		if a == "-" {
			continue
		}
		if !hasIngestExtension(a) {
			return fmt.Errorf("%s: unsupported file type (want %s)", a, strings.Join(ingestExtensions, ", "))
		}
	}
	return nil
}

func hasIngestExtension(path string) bool {
	return slices.Contains(ingestExtensions, strings.ToLower(filepath.Ext(path)))
}

func runIngest(cmd *cobra.Command, g *globalOptions, opts *ingestOptions, args []string) error {
	if err := opts.validate(args); err != nil {
		return err
	}

	ctx := cmd.Context()
	sess, err := g.open(ctx, true)
	if err != nil {
		return err
	}
	defer sess.Close()

	out := cmd.OutOrStdout()

	switch {
	case opts.dir != "":
		idxOpts := repository.IndexOptions{
			IncludePatterns: opts.include,
			ExcludePatterns: opts.exclude,
			MaxFileSize:     opts.maxFileSize,
		}
		if !opts.noIgnore {
			idxOpts.IgnoreFiles = ignore.DefaultFiles
		}
		res, err := sess.repository().IndexDirectory(ctx, opts.dir, idxOpts)
		if res != nil {
			renderIndexResult(out, res)
		}
		return err

	case opts.text != "":
		n, err := sess.backend.Ingest(ctx, strings.TrimSpace(opts.text))
		if err != nil {
			return err
		}
		renderIngest(out, "--text", n)
		return nil
	}

	total := 0
	for _, path := range args {
		text, err := readInput(cmd.InOrStdin(), path)
		if err != nil {
			return err
		}
		n, err := sess.backend.Ingest(ctx, text)
		if err != nil {
			return fmt.Errorf("%s: %w", displayName(path), err)
		}
		renderIngest(out, displayName(path), n)
		total += n
	}
	if len(args) > 1 {
		fmt.Fprintln(out, render(titleStyle, fmt.Sprintf("%d chunks from %d documents", total, len(args))))
	}
	return nil
}

// readInput reads path, or stdin for "-".
func readInput(stdin io.Reader, path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return string(b), nil
}

func displayName(path string) string {
	if path == "-" {
		return "stdin"
	}
	return path
}
