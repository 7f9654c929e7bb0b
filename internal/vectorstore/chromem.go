package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const providerChromem = "chromem"

// chromemTracer for OpenTelemetry instrumentation.
var chromemTracer = otel.Tracer("mdsearch.vectorstore.chromem")

// errNoEmbeddingFunc is returned if chromem ever tries to embed text itself.
// All records and queries carry precomputed vectors.
var errNoEmbeddingFunc = errors.New("chromem store requires precomputed embeddings")

// ChromemConfig holds configuration for chromem-go embedded vector database.
type ChromemConfig struct {
	// Path is the directory for persistent storage.
	// Default: "~/.local/share/mdsearch/vectorstore"
	Path string

	// InMemory keeps the database in memory only. Path is ignored.
	InMemory bool

	// Compress enables gzip compression for stored data.
	Compress bool

	// Collection is the collection records are written to.
	// Default: "markdown_chunks"
	Collection string

	// VectorSize is the expected embedding dimension.
	// Must match the embedder's output dimension.
	// Default: 1024 (Amazon Titan Text Embeddings v2)
	VectorSize int
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "~/.local/share/mdsearch/vectorstore"
	}
	if c.Collection == "" {
		c.Collection = "markdown_chunks"
	}
	if c.VectorSize == 0 {
		c.VectorSize = 1024
	}
}

// Validate validates the configuration.
func (c *ChromemConfig) Validate() error {
	if c.VectorSize <= 0 {
		return fmt.Errorf("%w: vector size must be positive", ErrInvalidConfig)
	}
	return ValidateCollectionName(c.Collection)
}

// ChromemStore implements Store and Admin using chromem-go.
//
// chromem-go is an embeddable vector database with no external service.
// It keeps data in memory and optionally persists it to gob files. It scores
// by cosine similarity; Query reports distance as 1 - similarity.
type ChromemStore struct {
	db     *chromem.DB
	config ChromemConfig
	logger *zap.Logger
}

// NewChromemStore creates a new ChromemStore with the given configuration.
func NewChromemStore(config ChromemConfig, logger *zap.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	var db *chromem.DB
	if config.InMemory {
		db = chromem.NewDB()
	} else {
		expandedPath, err := expandPath(config.Path)
		if err != nil {
			return nil, fmt.Errorf("expanding path: %w", err)
		}
		if err := os.MkdirAll(expandedPath, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", expandedPath, err)
		}
		db, err = chromem.NewPersistentDB(expandedPath, config.Compress)
		if err != nil {
			return nil, fmt.Errorf("creating chromem DB: %w", err)
		}
		config.Path = expandedPath
	}

	logger.Info("ChromemStore initialized",
		zap.String("path", config.Path),
		zap.Bool("in_memory", config.InMemory),
		zap.Bool("compress", config.Compress),
		zap.Int("vector_size", config.VectorSize),
		zap.String("collection", config.Collection),
	)

	return &ChromemStore{
		db:     db,
		config: config,
		logger: logger,
	}, nil
}

// expandPath expands ~ to home directory.
func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}

// collection returns the configured collection, creating it when create is true.
// A nil collection with a nil error means it does not exist.
func (s *ChromemStore) collection(create bool) (*chromem.Collection, error) {
	if !create {
		// Must pass an embedding function to avoid chromem-go defaulting to OpenAI.
		return s.db.GetCollection(s.config.Collection, noEmbedding), nil
	}
	c, err := s.db.GetOrCreateCollection(s.config.Collection, nil, noEmbedding)
	if err != nil {
		return nil, fmt.Errorf("getting/creating collection %s: %w", s.config.Collection, err)
	}
	return c, nil
}

// PutBatch adds all records to the collection.
func (s *ChromemStore) PutBatch(ctx context.Context, records []Record) (err error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.PutBatch")
	defer span.End()
	defer observe(providerChromem, "put_batch", time.Now(), &err)

	span.SetAttributes(
		attribute.String("collection", s.config.Collection),
		attribute.Int("record_count", len(records)),
	)

	if len(records) == 0 {
		return ErrEmptyBatch
	}

	docs := make([]chromem.Document, len(records))
	for i, r := range records {
		if len(r.Vector) != s.config.VectorSize {
			err = fmt.Errorf("%w: record %d has %d values, index expects %d",
				ErrDimensionMismatch, i, len(r.Vector), s.config.VectorSize)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
		docs[i] = chromem.Document{
			ID:        r.Key,
			Content:   r.Metadata.SourceText,
			Metadata:  metadataToStrings(r.Metadata),
			Embedding: r.Vector,
		}
	}

	collection, err := s.collection(true)
	if err != nil {
		span.RecordError(err)
		return err
	}

	// Concurrency of 1 since embeddings are precomputed.
	if err = collection.AddDocuments(ctx, docs, 1); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("adding documents: %w", err)
	}

	RecordsWritten.WithLabelValues(providerChromem).Add(float64(len(records)))
	span.SetStatus(codes.Ok, "success")

	s.logger.Debug("wrote records to chromem",
		zap.String("collection", s.config.Collection),
		zap.Int("count", len(records)),
	)
	return nil
}

// Query returns the topK nearest records. chromem-go requires nResults to be
// at most the collection size, so topK is capped at the record count.
func (s *ChromemStore) Query(ctx context.Context, vector QueryVector, topK int) (_ []Match, err error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Query")
	defer span.End()
	defer observe(providerChromem, "query", time.Now(), &err)

	span.SetAttributes(
		attribute.String("collection", s.config.Collection),
		attribute.Int("top_k", topK),
	)

	if topK <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, topK)
	}
	if len(vector.Float32) != s.config.VectorSize {
		return nil, fmt.Errorf("%w: query has %d values, index expects %d",
			ErrDimensionMismatch, len(vector.Float32), s.config.VectorSize)
	}

	collection, _ := s.collection(false)
	if collection == nil || collection.Count() == 0 {
		QueryResults.WithLabelValues(providerChromem).Observe(0)
		return []Match{}, nil
	}
	if n := collection.Count(); topK > n {
		topK = n
	}

	results, err := collection.QueryEmbedding(ctx, vector.Float32, topK, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", s.config.Collection, err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		md, err := metadataFromStrings(r.Metadata)
		if err != nil {
			s.logger.Warn("skipping record with malformed metadata",
				zap.String("key", r.ID),
				zap.Error(err),
			)
			continue
		}
		matches = append(matches, Match{
			Key:      r.ID,
			Distance: 1 - r.Similarity,
			Metadata: md,
		})
	}

	QueryResults.WithLabelValues(providerChromem).Observe(float64(len(matches)))
	span.SetAttributes(attribute.Int("results_count", len(matches)))
	span.SetStatus(codes.Ok, "success")
	return matches, nil
}

// Count returns the number of records in the collection.
func (s *ChromemStore) Count(ctx context.Context) (_ int, err error) {
	_, span := chromemTracer.Start(ctx, "ChromemStore.Count")
	defer span.End()
	defer observe(providerChromem, "count", time.Now(), &err)

	collection, _ := s.collection(false)
	if collection == nil {
		return 0, nil
	}
	n := collection.Count()
	span.SetAttributes(attribute.Int("record_count", n))
	return n, nil
}

// EnsureIndex creates the collection if needed. chromem collections are
// dimension-agnostic, so dimension is only checked against the config.
func (s *ChromemStore) EnsureIndex(ctx context.Context, dimension int) (err error) {
	_, span := chromemTracer.Start(ctx, "ChromemStore.EnsureIndex")
	defer span.End()
	defer observe(providerChromem, "ensure_index", time.Now(), &err)

	if dimension != s.config.VectorSize {
		return fmt.Errorf("%w: requested %d, store configured for %d",
			ErrDimensionMismatch, dimension, s.config.VectorSize)
	}
	_, err = s.collection(true)
	return err
}

// Drop deletes the collection and all its records.
func (s *ChromemStore) Drop(ctx context.Context) (err error) {
	_, span := chromemTracer.Start(ctx, "ChromemStore.Drop")
	defer span.End()
	defer observe(providerChromem, "drop", time.Now(), &err)

	span.SetAttributes(attribute.String("collection", s.config.Collection))

	if err = s.db.DeleteCollection(s.config.Collection); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deleting collection %s: %w", s.config.Collection, err)
	}

	s.logger.Info("deleted chromem collection",
		zap.String("collection", s.config.Collection),
	)
	return nil
}

// Close closes the ChromemStore.
// chromem-go persists on every write, so there is nothing to flush.
func (s *ChromemStore) Close() error {
	s.logger.Info("chromem store closed")
	return nil
}

var (
	_ Store = (*ChromemStore)(nil)
	_ Admin = (*ChromemStore)(nil)
)
