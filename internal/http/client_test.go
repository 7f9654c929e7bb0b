package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/mdsearch/internal/retrieval"
	"github.com/fyrsmithlabs/mdsearch/internal/vectorstore"
)

func newTestClient(t *testing.T, f *fixture) *Client {
	t.Helper()
	ts := httptest.NewServer(f.server.Handler())
	t.Cleanup(ts.Close)
	return NewClient(ts.URL+"/", nil)
}

func TestClient_RoundTrip(t *testing.T) {
	f := setupTestServer(t, nil)
	f.searcher.results = []retrieval.Result{{
		Key:        "k",
		Similarity: 0.9,
		Metadata:   vectorstore.Metadata{Heading: "## Setup", ChunkIndex: 2},
	}}
	c := newTestClient(t, f)
	ctx := context.Background()

	require.NoError(t, c.Health(ctx))

	n, err := c.Ingest(ctx, "## A\nalpha")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "## A\nalpha", f.ingester.text)

	n, err = c.IngestChunks(ctx, []string{"one", "two"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = c.IngestChunks(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	results, err := c.Search(ctx, "setup", 4)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "## Setup", results[0].Metadata.Heading)
	assert.Equal(t, 4, f.searcher.topK)

	p, err := c.Preview(ctx, "## A\nx\n\n## B\ny", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, p.ChunkCount)
	assert.Equal(t, 1, p.Remaining)

	count, err := c.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42, count)
}

func TestClient_Errors(t *testing.T) {
	f := setupTestServer(t, func(s *Services, _ *Config) { s.Index = nil })
	f.searcher.err = &retrieval.QueryError{TopK: 5, Err: errBoom}
	c := newTestClient(t, f)
	ctx := context.Background()

	_, err := c.Ingest(ctx, "   ")
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusBadRequest))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Message, "empty")
	assert.NotEmpty(t, apiErr.RequestID)

	_, err = c.Search(ctx, "q", 0)
	assert.True(t, IsStatus(err, http.StatusServiceUnavailable))

	_, err = c.Count(ctx)
	assert.True(t, IsStatus(err, http.StatusNotImplemented))

	assert.False(t, IsStatus(errBoom, http.StatusBadRequest))
}

func TestClient_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	err := NewClient(url, nil).Health(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	assert.NotErrorAs(t, err, &apiErr)
}
