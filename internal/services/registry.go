package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mdsearch/internal/config"
	"github.com/fyrsmithlabs/mdsearch/internal/embeddings"
	"github.com/fyrsmithlabs/mdsearch/internal/repository"
	"github.com/fyrsmithlabs/mdsearch/internal/retrieval"
	"github.com/fyrsmithlabs/mdsearch/internal/segment"
	"github.com/fyrsmithlabs/mdsearch/internal/vectorstore"
)

// Registry provides access to the pipeline components.
type Registry interface {
	Embedder() embeddings.Provider
	Store() vectorstore.IndexStore
	Ingester() *retrieval.Ingester
	Searcher() *retrieval.Searcher
	Repository() *repository.Service
	Segmenter() *segment.Segmenter

	// Close releases the store and the embedding provider.
	Close() error
}

// Options configures the registry with component instances.
type Options struct {
	Embedder   embeddings.Provider
	Store      vectorstore.IndexStore
	Ingester   *retrieval.Ingester
	Searcher   *retrieval.Searcher
	Repository *repository.Service
	Segmenter  *segment.Segmenter
}

type registry struct {
	embedder   embeddings.Provider
	store      vectorstore.IndexStore
	ingester   *retrieval.Ingester
	searcher   *retrieval.Searcher
	repository *repository.Service
	segmenter  *segment.Segmenter
}

// NewRegistry creates a registry from existing components.
func NewRegistry(opts Options) Registry {
	seg := opts.Segmenter
	if seg == nil && opts.Ingester != nil {
		seg = opts.Ingester.Segmenter()
	}
	return &registry{
		embedder:   opts.Embedder,
		store:      opts.Store,
		ingester:   opts.Ingester,
		searcher:   opts.Searcher,
		repository: opts.Repository,
		segmenter:  seg,
	}
}

func (r *registry) Embedder() embeddings.Provider   { return r.embedder }
func (r *registry) Store() vectorstore.IndexStore   { return r.store }
func (r *registry) Ingester() *retrieval.Ingester   { return r.ingester }
func (r *registry) Searcher() *retrieval.Searcher   { return r.searcher }
func (r *registry) Repository() *repository.Service { return r.repository }
func (r *registry) Segmenter() *segment.Segmenter   { return r.segmenter }

func (r *registry) Close() error {
	var errs []error
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing vector store: %w", err))
		}
	}
	if r.embedder != nil {
		if err := r.embedder.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing embedding provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

// BuildOptions controls Build.
type BuildOptions struct {
	// EnsureIndex creates the vector index when it does not exist yet.
	EnsureIndex bool
}

// Build creates every pipeline component from cfg.
//
// The embedding provider's reported dimension must match
// cfg.Embedding.Dimension, since the index is created with it.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts BuildOptions) (Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	embedder, err := embeddings.NewProvider(ctx, cfg.Embedding, logger.Named("embeddings"))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}
	if d := embedder.Dimension(); d > 0 && d != cfg.Embedding.Dimension {
		_ = embedder.Close()
		return nil, fmt.Errorf("embedding provider reports dimension %d, configured %d", d, cfg.Embedding.Dimension)
	}

	store, err := vectorstore.NewStore(ctx, cfg, logger.Named("vectorstore"))
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to create vector store: %w", err)
	}

	if opts.EnsureIndex {
		if err := store.EnsureIndex(ctx, cfg.Embedding.Dimension); err != nil {
			_ = store.Close()
			_ = embedder.Close()
			return nil, fmt.Errorf("failed to ensure index: %w", err)
		}
	}

	rcfg := retrieval.ConfigFrom(cfg)
	ingester := retrieval.NewIngester(embedder, store, rcfg, logger.Named("ingest"))
	searcher := retrieval.NewSearcher(embedder, store, rcfg, logger.Named("search"))

	logger.Info("pipeline ready",
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("model", embedder.Model()),
		zap.Int("dimension", cfg.Embedding.Dimension),
		zap.String("vectorstore_provider", cfg.VectorStore.Provider),
	)

	return NewRegistry(Options{
		Embedder:   embedder,
		Store:      store,
		Ingester:   ingester,
		Searcher:   searcher,
		Repository: repository.NewService(ingester, logger.Named("repository")),
		Segmenter:  ingester.Segmenter(),
	}), nil
}
