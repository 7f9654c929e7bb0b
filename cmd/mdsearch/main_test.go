package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mdhttp "github.com/fyrsmithlabs/mdsearch/internal/http"
	"github.com/fyrsmithlabs/mdsearch/internal/retrieval"
	"github.com/fyrsmithlabs/mdsearch/internal/vectorstore"
)

type stubPipeline struct {
	ingested []string
	query    string
	topK     int
	results  []retrieval.Result
}

func (s *stubPipeline) Ingest(_ context.Context, text string) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, retrieval.ErrEmptyDocument
	}
	s.ingested = append(s.ingested, text)
	return strings.Count(text, "## ") + 1, nil
}

func (s *stubPipeline) IngestChunks(_ context.Context, chunks []string) (int, error) {
	return len(chunks), nil
}

func (s *stubPipeline) Search(_ context.Context, query string, topK int) ([]retrieval.Result, error) {
	s.query, s.topK = query, topK
	return s.results, nil
}

func (s *stubPipeline) Count(context.Context) (int, error) { return len(s.ingested), nil }

func startServer(t *testing.T) (*stubPipeline, string) {
	t.Helper()
	p := &stubPipeline{}
	srv, err := mdhttp.NewServer(mdhttp.Services{Ingester: p, Searcher: p, Index: p}, zap.NewNop(), nil)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return p, ts.URL
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	plain = true
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestIngest_Validation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "no input", args: []string{"ingest"}, wantErr: "nothing to ingest"},
		{name: "two sources", args: []string{"ingest", "--text", "x", "a.md"}, wantErr: "only one of"},
		{name: "include without dir", args: []string{"ingest", "--include", "*.md", "a.md"}, wantErr: "require --dir"},
		{name: "unsupported type", args: []string{"ingest", "photo.png"}, wantErr: "unsupported file type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIngest_Remote(t *testing.T) {
	p, url := startServer(t)
	dir := t.TempDir()
	a := writeFile(t, dir, "a.md", "## One\nfirst\n\n## Two\nsecond")
	b := writeFile(t, dir, "b.txt", "plain notes")

	out, err := execute(t, "", "--server", url, "ingest", a, b)
	require.NoError(t, err)
	assert.Len(t, p.ingested, 2)
	assert.Contains(t, out, "3 chunks from "+a)
	assert.Contains(t, out, "1 chunks from "+b)
	assert.Contains(t, out, "4 chunks from 2 documents")
}

func TestIngest_RemoteTextAndStdin(t *testing.T) {
	p, url := startServer(t)

	_, err := execute(t, "", "--server", url, "ingest", "--text", "  ## Todo\nship  ")
	require.NoError(t, err)
	require.Len(t, p.ingested, 1)
	assert.Equal(t, "## Todo\nship", p.ingested[0])

	out, err := execute(t, "## From stdin\nbody", "--server", url, "ingest", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "from stdin")
}

func TestIngest_RemoteEmptyDocument(t *testing.T) {
	_, url := startServer(t)
	_, err := execute(t, "   ", "--server", url, "ingest", "-")
	require.Error(t, err)
	assert.True(t, mdhttp.IsStatus(err, 400))
}

func TestIngest_RemoteDirectory(t *testing.T) {
	p, url := startServer(t)
	dir := t.TempDir()
	writeFile(t, dir, "docs/a.md", "## A\nalpha")
	writeFile(t, dir, "docs/archive/old.md", "## Old\nstale")
	writeFile(t, dir, "docs/empty.md", "   ")
	writeFile(t, dir, "main.go", "package main")

	out, err := execute(t, "", "--server", url, "ingest", "--dir", dir, "--exclude", "docs/archive/**")
	require.NoError(t, err)
	require.Len(t, p.ingested, 1)
	assert.Equal(t, "## A\nalpha", p.ingested[0])
	assert.Contains(t, out, "skipped docs/empty.md")
	assert.Contains(t, out, "from 1 files")
}

func TestSearch_Remote(t *testing.T) {
	p, url := startServer(t)
	p.results = []retrieval.Result{{
		Key:        "k1",
		Similarity: 0.912,
		Metadata: vectorstore.Metadata{
			SourceText: "## Deploy\nrun the script",
			Heading:    "## Deploy",
			Timestamp:  "2026-03-04T05:06:07Z",
			ChunkIndex: 2,
			FullLength: 1234,
		},
	}}

	out, err := execute(t, "", "--server", url, "search", "--top-k", "3", "how", "to", "deploy")
	require.NoError(t, err)
	assert.Equal(t, "how to deploy", p.query)
	assert.Equal(t, 3, p.topK)
	assert.Contains(t, out, "## Deploy")
	assert.Contains(t, out, "score 0.912")
	assert.Contains(t, out, "chunk 2")
	assert.Contains(t, out, "2026-03-04T05:06:07Z")
	assert.Contains(t, out, "1234 chars")
	assert.Contains(t, out, "run the script")
}

func TestSearch_RemoteJSONAndEmpty(t *testing.T) {
	p, url := startServer(t)

	out, err := execute(t, "", "--server", url, "search", "nothing")
	require.NoError(t, err)
	assert.Contains(t, out, `No results for "nothing"`)
	assert.Equal(t, 5, p.topK)

	p.results = []retrieval.Result{{Key: "k", Metadata: vectorstore.Metadata{Heading: "## H"}}}
	out, err = execute(t, "", "--server", url, "search", "--json", "q")
	require.NoError(t, err)
	assert.Contains(t, out, `"heading": "## H"`)

	_, err = execute(t, "", "--server", url, "search", "--top-k", "0", "q")
	assert.ErrorContains(t, err, "--top-k")
}

func TestPreview(t *testing.T) {
	var doc strings.Builder
	for i := range 12 {
		doc.WriteString("## Section ")
		doc.WriteString(string(rune('A' + i)))
		doc.WriteString("\nbody\n\n")
	}

	t.Run("remote", func(t *testing.T) {
		_, url := startServer(t)
		out, err := execute(t, doc.String(), "--server", url, "preview", "-")
		require.NoError(t, err)
		assert.Contains(t, out, "Preview of stdin")
		assert.Contains(t, out, "Chunks:     12")
		assert.Contains(t, out, "10. ## Section J")
		assert.Contains(t, out, "... and 2 more")
	})

	t.Run("local", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		path := writeFile(t, t.TempDir(), "doc.md", doc.String())
		out, err := execute(t, "", "preview", "--limit", "3", path)
		require.NoError(t, err)
		assert.Contains(t, out, "3. ## Section C")
		assert.Contains(t, out, "... and 9 more")
	})

	t.Run("negative limit", func(t *testing.T) {
		_, err := execute(t, "", "preview", "--limit", "-1", "-")
		assert.ErrorContains(t, err, "--limit")
	})
}

func TestIndex_Remote(t *testing.T) {
	p, url := startServer(t)
	p.ingested = []string{"a", "b"}

	out, err := execute(t, "", "--server", url, "index", "count")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	_, err = execute(t, "", "--server", url, "index", "create")
	assert.ErrorIs(t, err, errRemoteUnsupported)

	_, err = execute(t, "", "--server", url, "index", "delete", "--yes")
	assert.ErrorIs(t, err, errRemoteUnsupported)
}

func TestIndexDelete_RequiresConfirmation(t *testing.T) {
	_, err := execute(t, "", "index", "delete")
	assert.ErrorContains(t, err, "--yes")
}
