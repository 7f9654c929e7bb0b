package retrieval

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/mdsearch/internal/segment"
	"github.com/fyrsmithlabs/mdsearch/internal/vectorstore"
)

var fixedTime = time.Date(2024, 5, 1, 12, 30, 0, 0, time.FixedZone("CEST", 2*60*60))

func TestRecordBuilder_Build(t *testing.T) {
	emb := &bagOfWordsEmbedder{dim: testDim}
	b := NewRecordBuilder(emb, Config{Dimension: testDim, Clock: func() time.Time { return fixedTime }})

	chunk := "## Setup\nInstall the tool."
	rec, err := b.Build(context.Background(), chunk, 2)
	require.NoError(t, err)

	_, err = uuid.Parse(rec.Key)
	assert.NoError(t, err)
	assert.Len(t, rec.Vector, testDim)
	assert.Equal(t, vectorstore.Metadata{
		SourceText: chunk,
		Heading:    "Setup",
		Timestamp:  "2024-05-01T10:30:00Z",
		ChunkIndex: 2,
		FullLength: len(chunk),
	}, rec.Metadata)
	assert.Equal(t, []string{chunk}, emb.calls)
}

func TestRecordBuilder_UniqueKeys(t *testing.T) {
	b := NewRecordBuilder(&bagOfWordsEmbedder{dim: testDim}, Config{})

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		rec, err := b.Build(context.Background(), "same text", 0)
		require.NoError(t, err)
		assert.False(t, seen[rec.Key], "duplicate key %s", rec.Key)
		seen[rec.Key] = true
	}
}

func TestRecordBuilder_NoHeading(t *testing.T) {
	b := NewRecordBuilder(&bagOfWordsEmbedder{dim: testDim}, Config{})

	rec, err := b.Build(context.Background(), "intro text", 0)
	require.NoError(t, err)
	assert.Equal(t, segment.NoHeading, rec.Metadata.Heading)
}

func TestRecordBuilder_Truncation(t *testing.T) {
	tests := []struct {
		name       string
		chunk      string
		max        int
		wantSource string
		wantLength int
	}{
		{
			name:       "under limit",
			chunk:      strings.Repeat("a", 10),
			max:        10,
			wantSource: strings.Repeat("a", 10),
			wantLength: 10,
		},
		{
			name:       "over limit",
			chunk:      strings.Repeat("a", 11),
			max:        10,
			wantSource: strings.Repeat("a", 10) + "...",
			wantLength: 11,
		},
		{
			name:       "multibyte counted as characters",
			chunk:      strings.Repeat("é", 12),
			max:        10,
			wantSource: strings.Repeat("é", 10) + "...",
			wantLength: 12,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewRecordBuilder(&bagOfWordsEmbedder{dim: testDim}, Config{MaxMetadataText: tt.max})
			rec, err := b.Build(context.Background(), tt.chunk, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSource, rec.Metadata.SourceText)
			assert.Equal(t, tt.wantLength, rec.Metadata.FullLength)
		})
	}
}

func TestRecordBuilder_DefaultTruncation(t *testing.T) {
	b := NewRecordBuilder(&bagOfWordsEmbedder{dim: testDim}, Config{})

	rec, err := b.Build(context.Background(), strings.Repeat("x", 1000), 0)
	require.NoError(t, err)
	assert.Len(t, rec.Metadata.SourceText, DefaultMaxMetadataText+len(ellipsis))
	assert.Equal(t, 1000, rec.Metadata.FullLength)
}

func TestRecordBuilder_EmbeddingErrors(t *testing.T) {
	t.Run("embedder fails", func(t *testing.T) {
		b := NewRecordBuilder(&bagOfWordsEmbedder{dim: testDim, err: errBoom}, Config{})
		_, err := b.Build(context.Background(), "text", 0)

		var embErr *EmbeddingError
		require.ErrorAs(t, err, &embErr)
		assert.Equal(t, "ingest", embErr.Op)
		assert.ErrorIs(t, err, errBoom)
	})

	t.Run("wrong dimension", func(t *testing.T) {
		b := NewRecordBuilder(&bagOfWordsEmbedder{dim: 8}, Config{Dimension: 1024})
		_, err := b.Build(context.Background(), "text", 0)

		var embErr *EmbeddingError
		require.ErrorAs(t, err, &embErr)
		assert.ErrorIs(t, err, vectorstore.ErrDimensionMismatch)
	})
}
