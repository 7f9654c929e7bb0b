package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleDoc = "intro text\n## A\nbody A\n## B\nbody B"

func TestIngester_Ingest(t *testing.T) {
	emb := &bagOfWordsEmbedder{dim: testDim}
	store := &fakeStore{}
	ing := NewIngester(emb, store, Config{Dimension: testDim}, zap.NewNop())

	n, err := ing.Ingest(context.Background(), sampleDoc)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// One embedding per chunk, in order, and exactly one store write.
	assert.Equal(t, []string{"intro text", "## A\nbody A", "## B\nbody B"}, emb.calls)
	require.Len(t, store.batches, 1)

	batch := store.batches[0]
	require.Len(t, batch, 3)
	for i, rec := range batch {
		assert.Equal(t, i, rec.Metadata.ChunkIndex)
	}
	assert.Equal(t, "no heading", batch[0].Metadata.Heading)
	assert.Equal(t, "A", batch[1].Metadata.Heading)
	assert.Equal(t, "B", batch[2].Metadata.Heading)
}

func TestIngester_EmptyDocument(t *testing.T) {
	for _, doc := range []string{"", "   ", "\n\n\t"} {
		emb := &bagOfWordsEmbedder{dim: testDim}
		store := &fakeStore{}
		ing := NewIngester(emb, store, Config{}, nil)

		n, err := ing.Ingest(context.Background(), doc)
		assert.Zero(t, n)
		assert.ErrorIs(t, err, ErrEmptyDocument)
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Empty(t, emb.calls)
		assert.Empty(t, store.batches, "no store call for empty document")
	}
}

func TestIngester_IngestChunks(t *testing.T) {
	store := &fakeStore{}
	ing := NewIngester(&bagOfWordsEmbedder{dim: testDim}, store, Config{}, nil)

	n, err := ing.IngestChunks(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, store.batches)

	n, err = ing.IngestChunks(context.Background(), []string{"## X\none", "two"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, store.batches, 1)
	assert.Equal(t, "X", store.batches[0][0].Metadata.Heading)
}

func TestIngester_IngestChunks_BlankChunk(t *testing.T) {
	tests := []struct {
		name   string
		chunks []string
	}{
		{name: "whitespace before content", chunks: []string{"   ", "\n\t", "## A\nbody"}},
		{name: "empty string", chunks: []string{"## A\nbody", ""}},
		{name: "only blanks", chunks: []string{" ", "\n"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb := &bagOfWordsEmbedder{dim: testDim}
			store := &fakeStore{}
			ing := NewIngester(emb, store, Config{Dimension: testDim}, nil)

			n, err := ing.IngestChunks(context.Background(), tt.chunks)
			assert.Zero(t, n)
			assert.ErrorIs(t, err, ErrEmptyChunk)
			assert.ErrorIs(t, err, ErrInvalidInput)
			var embErr *EmbeddingError
			assert.NotErrorAs(t, err, &embErr)
			assert.Empty(t, emb.calls, "no embedding for rejected chunks")
			assert.Empty(t, store.batches, "no store call for rejected chunks")
		})
	}
}

func TestIngester_EmbeddingFailureWritesNothing(t *testing.T) {
	store := &fakeStore{}
	ing := NewIngester(&bagOfWordsEmbedder{dim: testDim, err: errBoom}, store, Config{}, nil)

	n, err := ing.Ingest(context.Background(), sampleDoc)
	assert.Zero(t, n)

	var embErr *EmbeddingError
	require.ErrorAs(t, err, &embErr)
	assert.Empty(t, store.batches)
}

func TestIngester_StoreFailure(t *testing.T) {
	store := &fakeStore{putErr: errBoom}
	ing := NewIngester(&bagOfWordsEmbedder{dim: testDim}, store, Config{}, nil)

	n, err := ing.Ingest(context.Background(), sampleDoc)
	assert.Zero(t, n)

	var ingErr *IngestionError
	require.ErrorAs(t, err, &ingErr)
	assert.Equal(t, 3, ingErr.Records)
	assert.ErrorIs(t, err, errBoom)
	assert.Len(t, store.batches, 1, "no retry")
}

func TestIngester_UsesConfiguredSegmenter(t *testing.T) {
	ing := NewIngester(&bagOfWordsEmbedder{dim: testDim}, &fakeStore{}, Config{MaxChunkSize: 50, HardBound: true}, nil)
	assert.Equal(t, 50, ing.Segmenter().MaxChunkSize())
	assert.True(t, ing.Segmenter().HardBound())
}
