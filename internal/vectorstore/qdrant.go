package vectorstore

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const providerQdrant = "qdrant"

// Tracer for OpenTelemetry instrumentation.
var qdrantTracer = otel.Tracer("mdsearch.vectorstore.qdrant")

// collectionNamePattern validates collection names.
// Pattern: lowercase letters, numbers, underscores, 1-64 characters.
var collectionNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// QdrantConfig holds configuration for Qdrant gRPC client.
type QdrantConfig struct {
	// Host is the Qdrant server hostname or IP address.
	// Default: "localhost"
	Host string

	// Port is the Qdrant gRPC port (NOT HTTP REST port).
	// Default: 6334
	Port int

	// CollectionName is the collection records are written to.
	// Default: "markdown_chunks"
	CollectionName string

	// VectorSize is the dimensionality of embeddings.
	// MUST match Embedder output dimensions.
	VectorSize uint64

	// UseTLS enables TLS encryption for gRPC connection.
	UseTLS bool

	// APIKey authenticates against Qdrant Cloud. Optional.
	APIKey string

	// MaxMessageSize is the maximum gRPC message size in bytes.
	// Default: 50MB
	MaxMessageSize int
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	}
	if c.VectorSize == 0 {
		return fmt.Errorf("%w: vector size required", ErrInvalidConfig)
	}
	return ValidateCollectionName(c.CollectionName)
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.CollectionName == "" {
		c.CollectionName = "markdown_chunks"
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024
	}
}

// ValidateCollectionName validates a collection name against security rules.
// Pattern: ^[a-z0-9_]{1,64}$
// Rejects: uppercase, special chars, path traversal, spaces.
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name cannot be empty", ErrInvalidCollectionName)
	}
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: collection name must match pattern ^[a-z0-9_]{1,64}$, got %q", ErrInvalidCollectionName, name)
	}
	return nil
}

// qdrantPoints is the subset of the Qdrant client used by QdrantStore.
type qdrantPoints interface {
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Count(ctx context.Context, request *qdrant.CountPoints) (uint64, error)
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	DeleteCollection(ctx context.Context, collectionName string) error
	Close() error
}

// QdrantStore is a Store implementation using Qdrant's native gRPC client.
//
// Collections are created with cosine distance. Qdrant reports cosine
// similarity as the score, so Query reports distance as 1 - score.
type QdrantStore struct {
	client qdrantPoints
	config QdrantConfig
	logger *zap.Logger
}

// NewQdrantStore connects to Qdrant and performs a health check.
func NewQdrantStore(config QdrantConfig, logger *zap.Logger) (*QdrantStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	if !config.UseTLS {
		logger.Warn("qdrant gRPC using plaintext (TLS disabled)")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		APIKey: config.APIKey,
		UseTLS: config.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
				grpc.MaxCallSendMsgSize(config.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: health check: %v", ErrConnectionFailed, err)
	}

	return newQdrantStore(client, config, logger), nil
}

func newQdrantStore(client qdrantPoints, config QdrantConfig, logger *zap.Logger) *QdrantStore {
	return &QdrantStore{client: client, config: config, logger: logger}
}

// PutBatch upserts all records in one request.
func (s *QdrantStore) PutBatch(ctx context.Context, records []Record) (err error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.PutBatch")
	defer span.End()
	defer observe(providerQdrant, "put_batch", time.Now(), &err)

	span.SetAttributes(
		attribute.String("collection", s.config.CollectionName),
		attribute.Int("record_count", len(records)),
	)

	if len(records) == 0 {
		return ErrEmptyBatch
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		if uint64(len(r.Vector)) != s.config.VectorSize {
			return fmt.Errorf("%w: record %d has %d values, collection expects %d",
				ErrDimensionMismatch, i, len(r.Vector), s.config.VectorSize)
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(r.Key),
			Vectors: qdrant.NewVectors(r.Vector...),
			Payload: toQdrantPayload(r.Metadata),
		}
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.config.CollectionName,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("upserting points to collection %s: %w", s.config.CollectionName, wrapNotFound(err))
	}

	RecordsWritten.WithLabelValues(providerQdrant).Add(float64(len(records)))
	span.SetStatus(codes.Ok, "success")
	return nil
}

// Query searches the collection for the topK nearest points.
func (s *QdrantStore) Query(ctx context.Context, vector QueryVector, topK int) (_ []Match, err error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Query")
	defer span.End()
	defer observe(providerQdrant, "query", time.Now(), &err)

	span.SetAttributes(
		attribute.String("collection", s.config.CollectionName),
		attribute.Int("top_k", topK),
	)

	if topK <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, topK)
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.config.CollectionName,
		Query:          qdrant.NewQuery(vector.Float32...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("searching collection %s: %w", s.config.CollectionName, wrapNotFound(err))
	}

	matches := make([]Match, 0, len(points))
	for _, p := range points {
		md, err := MetadataFromMap(fromQdrantPayload(p.GetPayload()))
		if err != nil {
			s.logger.Warn("skipping point with malformed payload", zap.Error(err))
			continue
		}
		matches = append(matches, Match{
			Key:      p.GetId().GetUuid(),
			Distance: 1 - p.GetScore(),
			Metadata: md,
		})
	}

	QueryResults.WithLabelValues(providerQdrant).Observe(float64(len(matches)))
	span.SetAttributes(attribute.Int("results_count", len(matches)))
	span.SetStatus(codes.Ok, "success")
	return matches, nil
}

// Count returns the exact number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context) (_ int, err error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Count")
	defer span.End()
	defer observe(providerQdrant, "count", time.Now(), &err)

	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.config.CollectionName,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("counting collection %s: %w", s.config.CollectionName, wrapNotFound(err))
	}
	return int(n), nil
}

// EnsureIndex creates the collection with cosine distance if it does not exist.
func (s *QdrantStore) EnsureIndex(ctx context.Context, dimension int) (err error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.EnsureIndex")
	defer span.End()
	defer observe(providerQdrant, "ensure_index", time.Now(), &err)

	span.SetAttributes(
		attribute.String("collection", s.config.CollectionName),
		attribute.Int("vector_size", dimension),
	)

	exists, err := s.client.CollectionExists(ctx, s.config.CollectionName)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("checking collection %s: %w", s.config.CollectionName, err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.config.CollectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("creating collection %s: %w", s.config.CollectionName, err)
	}

	s.logger.Info("created qdrant collection",
		zap.String("collection", s.config.CollectionName),
		zap.Int("vector_size", dimension),
	)
	return nil
}

// Drop deletes the collection and all its points.
func (s *QdrantStore) Drop(ctx context.Context) (err error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Drop")
	defer span.End()
	defer observe(providerQdrant, "drop", time.Now(), &err)

	if err = s.client.DeleteCollection(ctx, s.config.CollectionName); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deleting collection %s: %w", s.config.CollectionName, wrapNotFound(err))
	}
	return nil
}

// Close closes the Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// wrapNotFound maps gRPC NotFound to ErrIndexNotFound.
func wrapNotFound(err error) error {
	if st, ok := status.FromError(err); ok && st.Code() == grpccodes.NotFound {
		return fmt.Errorf("%w: %s", ErrIndexNotFound, st.Message())
	}
	return err
}

func toQdrantPayload(m Metadata) map[string]*qdrant.Value {
	return map[string]*qdrant.Value{
		KeySourceText: {Kind: &qdrant.Value_StringValue{StringValue: m.SourceText}},
		KeyHeading:    {Kind: &qdrant.Value_StringValue{StringValue: m.Heading}},
		KeyTimestamp:  {Kind: &qdrant.Value_StringValue{StringValue: m.Timestamp}},
		KeyChunkIndex: {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(m.ChunkIndex)}},
		KeyFullLength: {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(m.FullLength)}},
	}
}

func fromQdrantPayload(payload map[string]*qdrant.Value) map[string]interface{} {
	out := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		switch val := v.GetKind().(type) {
		case *qdrant.Value_StringValue:
			out[k] = val.StringValue
		case *qdrant.Value_IntegerValue:
			out[k] = val.IntegerValue
		case *qdrant.Value_DoubleValue:
			out[k] = val.DoubleValue
		case *qdrant.Value_BoolValue:
			out[k] = val.BoolValue
		}
	}
	return out
}

var (
	_ Store = (*QdrantStore)(nil)
	_ Admin = (*QdrantStore)(nil)
)
