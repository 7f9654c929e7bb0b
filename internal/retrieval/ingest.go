package retrieval

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mdsearch/internal/embeddings"
	"github.com/fyrsmithlabs/mdsearch/internal/segment"
	"github.com/fyrsmithlabs/mdsearch/internal/vectorstore"
)

var tracer = otel.Tracer("mdsearch.retrieval")

// BatchWriter is the store capability ingestion needs.
type BatchWriter interface {
	PutBatch(ctx context.Context, records []vectorstore.Record) error
}

// Ingester segments documents and writes their records in one batch.
type Ingester struct {
	segmenter *segment.Segmenter
	builder   *RecordBuilder
	store     BatchWriter
	logger    *zap.Logger
}

// NewIngester creates an Ingester.
func NewIngester(embedder embeddings.Embedder, store BatchWriter, cfg Config, logger *zap.Logger) *Ingester {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg = cfg.withDefaults()
	return &Ingester{
		segmenter: cfg.Segmenter(),
		builder:   NewRecordBuilder(embedder, cfg),
		store:     store,
		logger:    logger,
	}
}

// Segmenter returns the segmenter used by Ingest.
func (i *Ingester) Segmenter() *segment.Segmenter {
	return i.segmenter
}

// Ingest segments text and stores one record per chunk. It returns the
// number of records written.
func (i *Ingester) Ingest(ctx context.Context, text string) (int, error) {
	ctx, span := tracer.Start(ctx, "retrieval.Ingest")
	defer span.End()

	if strings.TrimSpace(text) == "" {
		span.SetStatus(codes.Error, ErrEmptyDocument.Error())
		return 0, ErrEmptyDocument
	}

	chunks := i.segmenter.Segment(text)
	span.SetAttributes(
		attribute.Int("document_length", len(text)),
		attribute.Int("chunk_count", len(chunks)),
	)
	return i.ingest(ctx, chunks)
}

// IngestChunks stores already segmented chunks. An empty slice writes nothing;
// a blank chunk rejects the whole call with ErrEmptyChunk before any embedding.
func (i *Ingester) IngestChunks(ctx context.Context, chunks []string) (int, error) {
	ctx, span := tracer.Start(ctx, "retrieval.IngestChunks")
	defer span.End()

	span.SetAttributes(attribute.Int("chunk_count", len(chunks)))
	for idx, chunk := range chunks {
		if strings.TrimSpace(chunk) == "" {
			err := fmt.Errorf("%w (chunk %d)", ErrEmptyChunk, idx)
			span.SetStatus(codes.Error, err.Error())
			return 0, err
		}
	}
	return i.ingest(ctx, chunks)
}

func (i *Ingester) ingest(ctx context.Context, chunks []string) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	records := make([]vectorstore.Record, 0, len(chunks))
	for idx, chunk := range chunks {
		rec, err := i.builder.Build(ctx, chunk, idx)
		if err != nil {
			i.logger.Warn("embedding chunk failed",
				zap.Int("chunk_index", idx),
				zap.Error(err),
			)
			return 0, err
		}
		records = append(records, rec)
	}

	if err := i.store.PutBatch(ctx, records); err != nil {
		return 0, &IngestionError{Records: len(records), Err: err}
	}

	i.logger.Info("ingested document", zap.Int("records", len(records)))
	return len(records), nil
}
