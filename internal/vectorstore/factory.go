package vectorstore

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mdsearch/internal/config"
)

// IndexStore is a Store that also supports index administration.
// Every provider returned by NewStore implements it.
type IndexStore interface {
	Store
	Admin
}

// NewStore creates the store selected by cfg.VectorStore.Provider:
//   - "chromem" (default): embedded chromem-go, no external service
//   - "qdrant": external Qdrant over gRPC
//   - "s3vectors": Amazon S3 Vectors
//
// The index dimension is taken from cfg.Embedding.Dimension.
//
// Example usage:
//
//	cfg, _ := config.Load(config.Options{})
//	store, err := vectorstore.NewStore(ctx, cfg, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
func NewStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (IndexStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dim := cfg.Embedding.Dimension
	vs := cfg.VectorStore

	var (
		store IndexStore
		err   error
	)
	switch vs.Provider {
	case providerChromem, "":
		store, err = NewChromemStore(ChromemConfig{
			Path:       vs.Chromem.Path,
			InMemory:   vs.Chromem.InMemory,
			Compress:   vs.Chromem.Compress,
			Collection: vs.Chromem.Collection,
			VectorSize: dim,
		}, logger)

	case providerQdrant:
		store, err = NewQdrantStore(QdrantConfig{
			Host:           vs.Qdrant.Host,
			Port:           vs.Qdrant.Port,
			CollectionName: vs.Qdrant.Collection,
			VectorSize:     uint64(dim),
			UseTLS:         vs.Qdrant.UseTLS,
			APIKey:         vs.Qdrant.APIKey.Value(),
		}, logger)

	case providerS3Vectors:
		store, err = NewS3VectorsStore(ctx, S3VectorsConfig{
			Region:     vs.S3Vectors.Region,
			BucketName: vs.S3Vectors.BucketName,
			IndexName:  vs.S3Vectors.IndexName,
			VectorSize: dim,
		}, logger)

	default:
		return nil, fmt.Errorf("%w: unsupported vectorstore provider: %s (supported: chromem, qdrant, s3vectors)", ErrInvalidConfig, vs.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("creating %s store: %w", vs.Provider, err)
	}

	return store, nil
}
