package vectorstore

import (
	"context"
	"errors"
)

// Sentinel errors for vector store operations.
var (
	// ErrIndexNotFound is returned when the configured index or collection does not exist.
	ErrIndexNotFound = errors.New("index not found")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyBatch indicates an empty or nil record batch.
	ErrEmptyBatch = errors.New("empty or nil record batch")

	// ErrConnectionFailed indicates the remote store could not be reached.
	ErrConnectionFailed = errors.New("failed to connect to vector store")

	// ErrInvalidCollectionName indicates collection name validation failure.
	ErrInvalidCollectionName = errors.New("invalid collection name")

	// ErrDimensionMismatch indicates a vector whose length differs from the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidTopK indicates a non-positive result count.
	ErrInvalidTopK = errors.New("topK must be positive")
)

// Store persists vector records and answers nearest-neighbour queries.
//
// Implementations:
//   - ChromemStore: embedded chromem-go (default)
//   - QdrantStore: external Qdrant over gRPC
//   - S3VectorsStore: Amazon S3 Vectors
type Store interface {
	// PutBatch writes all records in a single call. Callers treat the call
	// as all-or-nothing; implementations do not report partial success.
	PutBatch(ctx context.Context, records []Record) error

	// Query returns up to topK records nearest to the query vector, ordered
	// by increasing distance. Distances are cosine distances in [0, 2].
	// An index with fewer than topK records returns what it has.
	Query(ctx context.Context, vector QueryVector, topK int) ([]Match, error)

	// Close releases any resources held by the store.
	Close() error
}

// Admin is implemented by stores that support index administration.
type Admin interface {
	// Count returns the number of records in the index.
	Count(ctx context.Context) (int, error)

	// EnsureIndex creates the index for the given dimension if it does not exist.
	EnsureIndex(ctx context.Context, dimension int) error

	// Drop deletes the index and everything in it.
	Drop(ctx context.Context) error
}
