package retrieval

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/mdsearch/internal/embeddings"
	"github.com/fyrsmithlabs/mdsearch/internal/segment"
	"github.com/fyrsmithlabs/mdsearch/internal/vectorstore"
)

// RecordBuilder turns a chunk into a vector record. It does not write to a store.
type RecordBuilder struct {
	embedder embeddings.Embedder
	cfg      Config
}

// NewRecordBuilder creates a RecordBuilder.
func NewRecordBuilder(embedder embeddings.Embedder, cfg Config) *RecordBuilder {
	return &RecordBuilder{embedder: embedder, cfg: cfg.withDefaults()}
}

// Build embeds chunk and assembles its record. index is the chunk's
// zero-based position in its document.
func (b *RecordBuilder) Build(ctx context.Context, chunk string, index int) (vectorstore.Record, error) {
	vec, err := b.embedder.Embed(ctx, chunk)
	if err != nil {
		return vectorstore.Record{}, &EmbeddingError{Op: "ingest", Err: err}
	}
	if err := checkDimension(vec, b.cfg.Dimension); err != nil {
		return vectorstore.Record{}, &EmbeddingError{Op: "ingest", Err: err}
	}

	return vectorstore.Record{
		Key:    uuid.NewString(),
		Vector: vec,
		Metadata: vectorstore.Metadata{
			SourceText: truncate(chunk, b.cfg.MaxMetadataText),
			Heading:    segment.HeadingOrSentinel(chunk),
			Timestamp:  b.cfg.Clock().UTC().Format(time.RFC3339),
			ChunkIndex: index,
			FullLength: utf8.RuneCountInString(chunk),
		},
	}, nil
}

func checkDimension(vec []float32, want int) error {
	if want > 0 && len(vec) != want {
		return fmt.Errorf("%w: got %d values, want %d", vectorstore.ErrDimensionMismatch, len(vec), want)
	}
	return nil
}

// truncate cuts s to max characters and appends an ellipsis if anything was cut.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + ellipsis
}
