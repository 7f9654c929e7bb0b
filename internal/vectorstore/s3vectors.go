package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3vectors"
	"github.com/aws/aws-sdk-go-v2/service/s3vectors/document"
	"github.com/aws/aws-sdk-go-v2/service/s3vectors/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const providerS3Vectors = "s3vectors"

var s3vectorsTracer = otel.Tracer("mdsearch.vectorstore.s3vectors")

// S3VectorsConfig holds configuration for an Amazon S3 Vectors index.
type S3VectorsConfig struct {
	// Region is the AWS region of the vector bucket.
	Region string

	// BucketName is the vector bucket name.
	BucketName string

	// IndexName is the vector index inside the bucket.
	IndexName string

	// VectorSize is the index dimension.
	// Default: 1024
	VectorSize int

	// ListPageSize bounds each ListVectors page when counting.
	// Default: 500
	ListPageSize int32
}

// ApplyDefaults sets default values for unset fields.
func (c *S3VectorsConfig) ApplyDefaults() {
	if c.VectorSize == 0 {
		c.VectorSize = 1024
	}
	if c.ListPageSize == 0 {
		c.ListPageSize = 500
	}
}

// Validate validates the configuration.
func (c S3VectorsConfig) Validate() error {
	var errs []error
	if c.Region == "" {
		errs = append(errs, errors.New("region required"))
	}
	if c.BucketName == "" {
		errs = append(errs, errors.New("bucket name required"))
	}
	if c.IndexName == "" {
		errs = append(errs, errors.New("index name required"))
	}
	if c.VectorSize <= 0 {
		errs = append(errs, errors.New("vector size must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// s3vectorsAPI is the subset of the S3 Vectors client used by S3VectorsStore.
type s3vectorsAPI interface {
	PutVectors(ctx context.Context, in *s3vectors.PutVectorsInput, optFns ...func(*s3vectors.Options)) (*s3vectors.PutVectorsOutput, error)
	QueryVectors(ctx context.Context, in *s3vectors.QueryVectorsInput, optFns ...func(*s3vectors.Options)) (*s3vectors.QueryVectorsOutput, error)
	ListVectors(ctx context.Context, in *s3vectors.ListVectorsInput, optFns ...func(*s3vectors.Options)) (*s3vectors.ListVectorsOutput, error)
	ListIndexes(ctx context.Context, in *s3vectors.ListIndexesInput, optFns ...func(*s3vectors.Options)) (*s3vectors.ListIndexesOutput, error)
	GetIndex(ctx context.Context, in *s3vectors.GetIndexInput, optFns ...func(*s3vectors.Options)) (*s3vectors.GetIndexOutput, error)
	CreateVectorBucket(ctx context.Context, in *s3vectors.CreateVectorBucketInput, optFns ...func(*s3vectors.Options)) (*s3vectors.CreateVectorBucketOutput, error)
	CreateIndex(ctx context.Context, in *s3vectors.CreateIndexInput, optFns ...func(*s3vectors.Options)) (*s3vectors.CreateIndexOutput, error)
	DeleteIndex(ctx context.Context, in *s3vectors.DeleteIndexInput, optFns ...func(*s3vectors.Options)) (*s3vectors.DeleteIndexOutput, error)
	DeleteVectorBucket(ctx context.Context, in *s3vectors.DeleteVectorBucketInput, optFns ...func(*s3vectors.Options)) (*s3vectors.DeleteVectorBucketOutput, error)
}

// S3VectorsStore implements Store and Admin on Amazon S3 Vectors.
//
// Indexes are created with float32 data and cosine distance, which S3 Vectors
// reports directly as distance.
type S3VectorsStore struct {
	client s3vectorsAPI
	config S3VectorsConfig
	logger *zap.Logger
}

// NewS3VectorsStore loads the default AWS credential chain for the configured region.
func NewS3VectorsStore(ctx context.Context, config S3VectorsConfig, logger *zap.Logger) (*S3VectorsStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(config.Region))
	if err != nil {
		return nil, fmt.Errorf("%w: loading AWS config: %v", ErrConnectionFailed, err)
	}

	logger.Info("S3VectorsStore initialized",
		zap.String("region", config.Region),
		zap.String("bucket", config.BucketName),
		zap.String("index", config.IndexName),
	)

	return newS3VectorsStore(s3vectors.NewFromConfig(awsCfg), config, logger), nil
}

func newS3VectorsStore(client s3vectorsAPI, config S3VectorsConfig, logger *zap.Logger) *S3VectorsStore {
	return &S3VectorsStore{client: client, config: config, logger: logger}
}

// PutBatch writes all records with a single PutVectors call.
func (s *S3VectorsStore) PutBatch(ctx context.Context, records []Record) (err error) {
	ctx, span := s3vectorsTracer.Start(ctx, "S3VectorsStore.PutBatch")
	defer span.End()
	defer observe(providerS3Vectors, "put_batch", time.Now(), &err)

	span.SetAttributes(
		attribute.String("bucket", s.config.BucketName),
		attribute.String("index", s.config.IndexName),
		attribute.Int("record_count", len(records)),
	)

	if len(records) == 0 {
		return ErrEmptyBatch
	}

	vectors := make([]types.PutInputVector, len(records))
	for i, r := range records {
		if len(r.Vector) != s.config.VectorSize {
			return fmt.Errorf("%w: record %d has %d values, index expects %d",
				ErrDimensionMismatch, i, len(r.Vector), s.config.VectorSize)
		}
		vectors[i] = types.PutInputVector{
			Key:      aws.String(r.Key),
			Data:     &types.VectorDataMemberFloat32{Value: r.Vector},
			Metadata: document.NewLazyDocument(r.Metadata.ToMap()),
		}
	}

	_, err = s.client.PutVectors(ctx, &s3vectors.PutVectorsInput{
		VectorBucketName: aws.String(s.config.BucketName),
		IndexName:        aws.String(s.config.IndexName),
		Vectors:          vectors,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("putting vectors into %s/%s: %w", s.config.BucketName, s.config.IndexName, wrapS3NotFound(err))
	}

	RecordsWritten.WithLabelValues(providerS3Vectors).Add(float64(len(records)))
	span.SetStatus(codes.Ok, "success")
	return nil
}

// Query runs QueryVectors with distance and metadata returned.
func (s *S3VectorsStore) Query(ctx context.Context, vector QueryVector, topK int) (_ []Match, err error) {
	ctx, span := s3vectorsTracer.Start(ctx, "S3VectorsStore.Query")
	defer span.End()
	defer observe(providerS3Vectors, "query", time.Now(), &err)

	span.SetAttributes(
		attribute.String("index", s.config.IndexName),
		attribute.Int("top_k", topK),
	)

	if topK <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, topK)
	}

	out, err := s.client.QueryVectors(ctx, &s3vectors.QueryVectorsInput{
		VectorBucketName: aws.String(s.config.BucketName),
		IndexName:        aws.String(s.config.IndexName),
		QueryVector:      &types.VectorDataMemberFloat32{Value: vector.Float32},
		TopK:             aws.Int32(int32(topK)),
		ReturnDistance:   true,
		ReturnMetadata:   true,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying %s/%s: %w", s.config.BucketName, s.config.IndexName, wrapS3NotFound(err))
	}

	matches := make([]Match, 0, len(out.Vectors))
	for _, v := range out.Vectors {
		md, err := decodeS3Metadata(v.Metadata)
		if err != nil {
			s.logger.Warn("skipping vector with malformed metadata",
				zap.String("key", aws.ToString(v.Key)),
				zap.Error(err),
			)
			continue
		}
		matches = append(matches, Match{
			Key:      aws.ToString(v.Key),
			Distance: aws.ToFloat32(v.Distance),
			Metadata: md,
		})
	}

	QueryResults.WithLabelValues(providerS3Vectors).Observe(float64(len(matches)))
	span.SetAttributes(attribute.Int("results_count", len(matches)))
	span.SetStatus(codes.Ok, "success")
	return matches, nil
}

// Count pages through ListVectors and counts the keys.
func (s *S3VectorsStore) Count(ctx context.Context) (_ int, err error) {
	ctx, span := s3vectorsTracer.Start(ctx, "S3VectorsStore.Count")
	defer span.End()
	defer observe(providerS3Vectors, "count", time.Now(), &err)

	var (
		total     int
		nextToken *string
	)
	for {
		out, err := s.client.ListVectors(ctx, &s3vectors.ListVectorsInput{
			VectorBucketName: aws.String(s.config.BucketName),
			IndexName:        aws.String(s.config.IndexName),
			MaxResults:       aws.Int32(s.config.ListPageSize),
			NextToken:        nextToken,
		})
		if err != nil {
			span.RecordError(err)
			return 0, fmt.Errorf("listing vectors in %s/%s: %w", s.config.BucketName, s.config.IndexName, wrapS3NotFound(err))
		}
		total += len(out.Vectors)
		if aws.ToString(out.NextToken) == "" {
			break
		}
		nextToken = out.NextToken
	}

	span.SetAttributes(attribute.Int("record_count", total))
	return total, nil
}

// EnsureIndex creates the bucket and index if they do not exist.
func (s *S3VectorsStore) EnsureIndex(ctx context.Context, dimension int) (err error) {
	ctx, span := s3vectorsTracer.Start(ctx, "S3VectorsStore.EnsureIndex")
	defer span.End()
	defer observe(providerS3Vectors, "ensure_index", time.Now(), &err)

	_, err = s.client.GetIndex(ctx, &s3vectors.GetIndexInput{
		VectorBucketName: aws.String(s.config.BucketName),
		IndexName:        aws.String(s.config.IndexName),
	})
	if err == nil {
		return nil
	}
	var notFound *types.NotFoundException
	if !errors.As(err, &notFound) {
		span.RecordError(err)
		return fmt.Errorf("getting index %s: %w", s.config.IndexName, err)
	}

	_, err = s.client.CreateVectorBucket(ctx, &s3vectors.CreateVectorBucketInput{
		VectorBucketName: aws.String(s.config.BucketName),
	})
	var conflict *types.ConflictException
	if err != nil && !errors.As(err, &conflict) {
		span.RecordError(err)
		return fmt.Errorf("creating vector bucket %s: %w", s.config.BucketName, err)
	}

	_, err = s.client.CreateIndex(ctx, &s3vectors.CreateIndexInput{
		VectorBucketName: aws.String(s.config.BucketName),
		IndexName:        aws.String(s.config.IndexName),
		DataType:         types.DataTypeFloat32,
		Dimension:        aws.Int32(int32(dimension)),
		DistanceMetric:   types.DistanceMetricCosine,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("creating index %s: %w", s.config.IndexName, err)
	}

	s.logger.Info("created s3 vectors index",
		zap.String("bucket", s.config.BucketName),
		zap.String("index", s.config.IndexName),
		zap.Int("dimension", dimension),
	)
	return nil
}

// Drop deletes every index in the bucket and then the bucket itself.
func (s *S3VectorsStore) Drop(ctx context.Context) (err error) {
	ctx, span := s3vectorsTracer.Start(ctx, "S3VectorsStore.Drop")
	defer span.End()
	defer observe(providerS3Vectors, "drop", time.Now(), &err)

	bucket := aws.String(s.config.BucketName)

	var indexes []string
	var nextToken *string
	for {
		out, err := s.client.ListIndexes(ctx, &s3vectors.ListIndexesInput{
			VectorBucketName: bucket,
			NextToken:        nextToken,
		})
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("listing indexes in %s: %w", s.config.BucketName, wrapS3NotFound(err))
		}
		for _, idx := range out.Indexes {
			indexes = append(indexes, aws.ToString(idx.IndexName))
		}
		if aws.ToString(out.NextToken) == "" {
			break
		}
		nextToken = out.NextToken
	}

	for _, name := range indexes {
		if _, err := s.client.DeleteIndex(ctx, &s3vectors.DeleteIndexInput{
			VectorBucketName: bucket,
			IndexName:        aws.String(name),
		}); err != nil {
			span.RecordError(err)
			return fmt.Errorf("deleting index %s: %w", name, err)
		}
		s.logger.Info("deleted s3 vectors index", zap.String("index", name))
	}

	if _, err := s.client.DeleteVectorBucket(ctx, &s3vectors.DeleteVectorBucketInput{
		VectorBucketName: bucket,
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("deleting vector bucket %s: %w", s.config.BucketName, err)
	}

	s.logger.Info("deleted s3 vector bucket",
		zap.String("bucket", s.config.BucketName),
		zap.Int("indexes_deleted", len(indexes)),
	)
	return nil
}

// Close is a no-op; the AWS client holds no long-lived connections that need closing.
func (s *S3VectorsStore) Close() error {
	return nil
}

func decodeS3Metadata(doc document.Interface) (Metadata, error) {
	if doc == nil {
		return Metadata{}, nil
	}
	var payload map[string]interface{}
	if err := doc.UnmarshalSmithyDocument(&payload); err != nil {
		return Metadata{}, err
	}
	return MetadataFromMap(payload)
}

func wrapS3NotFound(err error) error {
	var notFound *types.NotFoundException
	if errors.As(err, &notFound) {
		return fmt.Errorf("%w: %v", ErrIndexNotFound, err)
	}
	return err
}

var (
	_ Store = (*S3VectorsStore)(nil)
	_ Admin = (*S3VectorsStore)(nil)
)
