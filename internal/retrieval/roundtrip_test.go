package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mdsearch/internal/vectorstore"
)

func newChromem(t *testing.T) *vectorstore.ChromemStore {
	t.Helper()
	store, err := vectorstore.NewChromemStore(vectorstore.ChromemConfig{
		InMemory:   true,
		VectorSize: testDim,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRoundTrip_Chromem(t *testing.T) {
	ctx := context.Background()
	store := newChromem(t)
	emb := &bagOfWordsEmbedder{dim: testDim}
	cfg := Config{Dimension: testDim}

	doc := "Project overview for the garden planner.\n" +
		"## Watering\nTomatoes need deep watering twice a week in summer.\n" +
		"## Soil\nMix compost into clay soil before planting carrots.\n" +
		"## Pests\nAphids can be controlled with ladybugs and soapy water."

	n, err := NewIngester(emb, store, cfg, nil).Ingest(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	searcher := NewSearcher(emb, store, cfg, nil)

	chunk := "## Soil\nMix compost into clay soil before planting carrots."
	hits, err := searcher.Search(ctx, chunk, 2)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "Soil", hits[0].Metadata.Heading)
	assert.Equal(t, 2, hits[0].Metadata.ChunkIndex)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-4)

	unrelated, err := searcher.Search(ctx, "quantum chromodynamics lattice gauge", 1)
	require.NoError(t, err)
	require.Len(t, unrelated, 1)
	assert.Greater(t, hits[0].Similarity, unrelated[0].Similarity)

	for _, r := range append(hits, unrelated...) {
		assert.InDelta(t, 1-r.Distance, r.Similarity, 1e-6)
		assert.GreaterOrEqual(t, r.Similarity, float32(-1.0001))
		assert.LessOrEqual(t, r.Similarity, float32(1.0001))
	}
}

func TestRoundTrip_TopKLargerThanIndex(t *testing.T) {
	ctx := context.Background()
	store := newChromem(t)
	emb := &bagOfWordsEmbedder{dim: testDim}
	cfg := Config{Dimension: testDim}

	_, err := NewIngester(emb, store, cfg, nil).Ingest(ctx, "just one chunk of text")
	require.NoError(t, err)

	results, err := NewSearcher(emb, store, cfg, nil).Search(ctx, "one chunk", 3)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}
