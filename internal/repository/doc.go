// Package repository ingests a directory tree of markdown documents.
//
// The tree is walked in lexical order and every regular file that passes the
// filters is ingested as its own document:
//
//	svc := repository.NewService(ingester, logger)
//	res, err := svc.IndexDirectory(ctx, "./docs", repository.IndexOptions{
//	    ExcludePatterns: []string{"drafts/**", "CHANGELOG.md"},
//	})
//
// # Pattern Matching
//
// Patterns use filepath.Match syntax and are tried against both the base name
// and the path relative to the root. A trailing "/**" excludes a whole
// directory. Exclude patterns take precedence over include patterns. With no
// include patterns, *.md, *.markdown and *.txt are ingested.
//
// Version control, dependency and build directories are always skipped, as
// are files over the size limit and files that are not valid UTF-8.
package repository
