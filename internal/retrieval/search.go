package retrieval

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mdsearch/internal/embeddings"
	"github.com/fyrsmithlabs/mdsearch/internal/vectorstore"
)

// Querier is the store capability search needs.
type Querier interface {
	Query(ctx context.Context, vector vectorstore.QueryVector, topK int) ([]vectorstore.Match, error)
}

// Result is one ranked search hit.
type Result struct {
	Key        string               `json:"key"`
	Distance   float32              `json:"distance"`
	Similarity float32              `json:"similarity"`
	Metadata   vectorstore.Metadata `json:"metadata"`
}

// Searcher answers similarity queries.
type Searcher struct {
	embedder  embeddings.Embedder
	store     Querier
	dimension int
	logger    *zap.Logger
}

// NewSearcher creates a Searcher.
func NewSearcher(embedder embeddings.Embedder, store Querier, cfg Config, logger *zap.Logger) *Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Searcher{
		embedder:  embedder,
		store:     store,
		dimension: cfg.Dimension,
		logger:    logger,
	}
}

// Search returns up to topK results, most similar first. The store's order
// is kept; Similarity is 1 - Distance.
func (s *Searcher) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	ctx, span := tracer.Start(ctx, "retrieval.Search")
	defer span.End()
	span.SetAttributes(attribute.Int("top_k", topK))

	if err := validateQuery(query, topK); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	vec, err := s.embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embedding failed")
		return nil, &EmbeddingError{Op: "search", Err: err}
	}
	if err := checkDimension(vec, s.dimension); err != nil {
		span.SetStatus(codes.Error, "embedding dimension mismatch")
		return nil, &EmbeddingError{Op: "search", Err: err}
	}

	matches, err := s.store.Query(ctx, vectorstore.NewQueryVector(vec), topK)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		return nil, &QueryError{TopK: topK, Err: err}
	}

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			Key:        m.Key,
			Distance:   m.Distance,
			Similarity: 1 - m.Distance,
			Metadata:   m.Metadata,
		}
	}

	span.SetAttributes(attribute.Int("results_count", len(results)))
	s.logger.Debug("search complete",
		zap.Int("top_k", topK),
		zap.Int("results", len(results)),
	)
	return results, nil
}

func validateQuery(query string, topK int) error {
	if strings.TrimSpace(query) == "" {
		return ErrEmptyQuery
	}
	if topK < 1 {
		return ErrInvalidTopK
	}
	return nil
}

func (s *Searcher) embed(ctx context.Context, query string) ([]float32, error) {
	if qe, ok := s.embedder.(embeddings.QueryEmbedder); ok {
		return qe.EmbedQuery(ctx, query)
	}
	return s.embedder.Embed(ctx, query)
}
