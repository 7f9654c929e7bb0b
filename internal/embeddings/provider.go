package embeddings

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/mdsearch/internal/config"
)

var tracer = otel.Tracer("mdsearch.embeddings")

var (
	// ErrEmptyInput indicates empty input text.
	ErrEmptyInput = errors.New("empty input text")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates the provider could not produce a vector.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Embedder converts a single text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// QueryEmbedder is implemented by providers whose models embed search
// queries differently from stored passages.
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Provider is an Embedder with a known model and output width.
type Provider interface {
	Embedder
	// Dimension returns the embedding dimension for the current model.
	Dimension() int
	// Model returns the provider-specific model identifier.
	Model() string
	// Close releases resources held by the provider.
	Close() error
}

// NewProvider creates the embedding provider selected by cfg.
//
// The returned provider is instrumented with metrics and honors
// cfg.RequestsPerSecond and cfg.Timeout.
func NewProvider(ctx context.Context, cfg config.EmbeddingConfig, logger *zap.Logger) (Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		p   Provider
		err error
	)
	switch cfg.Provider {
	case "bedrock":
		p, err = NewBedrockProvider(ctx, BedrockConfig{
			Region:    cfg.Region,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
		})
	case "openai":
		p, err = NewOpenAIProvider(OpenAIConfig{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey.Value(),
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
		})
	case "ollama":
		p, err = NewOllamaProvider(OllamaConfig{
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
		})
	case "tei":
		p, err = NewTEIProvider(TEIConfig{
			BaseURL:   cfg.BaseURL,
			APIKey:    cfg.APIKey.Value(),
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
		})
	case "fastembed":
		p, err = NewFastEmbedProvider(FastEmbedConfig{
			Model:    cfg.Model,
			CacheDir: cfg.CacheDir,
		})
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("embedding provider initialized",
		zap.String("provider", cfg.Provider),
		zap.String("model", p.Model()),
		zap.Int("dimension", p.Dimension()),
	)

	return Instrument(p, InstrumentOptions{
		RequestsPerSecond: cfg.RequestsPerSecond,
		Timeout:           cfg.Timeout.Duration(),
		Metrics:           NewMetrics(logger),
	}), nil
}

// InstrumentOptions configures Instrument.
type InstrumentOptions struct {
	// RequestsPerSecond throttles Embed calls. Zero disables throttling.
	RequestsPerSecond float64

	// Timeout bounds each call. Zero means no timeout.
	Timeout time.Duration

	// Metrics records call outcomes. Nil disables recording.
	Metrics *Metrics
}

// Instrument wraps p with throttling, timeouts and metrics.
func Instrument(p Provider, opts InstrumentOptions) Provider {
	ip := &instrumented{
		Provider: p,
		timeout:  opts.Timeout,
		metrics:  opts.Metrics,
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		ip.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return ip
}

type instrumented struct {
	Provider
	limiter *rate.Limiter
	timeout time.Duration
	metrics *Metrics
}

func (p *instrumented) Embed(ctx context.Context, text string) ([]float32, error) {
	return p.call(ctx, "embed", text, p.Provider.Embed)
}

// EmbedQuery uses the wrapped provider's query embedding when it has one.
func (p *instrumented) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	fn := p.Provider.Embed
	if qe, ok := p.Provider.(QueryEmbedder); ok {
		fn = qe.EmbedQuery
	}
	return p.call(ctx, "embed_query", text, fn)
}

func (p *instrumented) call(ctx context.Context, op, text string, fn func(context.Context, string) ([]float32, error)) ([]float32, error) {
	ctx, span := tracer.Start(ctx, "embeddings.Embed")
	span.SetAttributes(
		attribute.String("operation", op),
		attribute.String("model", p.Model()),
	)

	var genErr error
	defer func() {
		if genErr != nil {
			span.RecordError(genErr)
			span.SetStatus(codes.Error, genErr.Error())
		}
		span.End()
	}()

	if p.limiter != nil {
		waitStart := time.Now()
		if err := p.limiter.Wait(ctx); err != nil {
			genErr = fmt.Errorf("waiting for rate limiter: %w", err)
			return nil, genErr
		}
		p.metrics.RecordThrottle(ctx, p.Model(), time.Since(waitStart))
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	vec, err := fn(ctx, text)
	p.metrics.RecordCall(ctx, p.Model(), op, time.Since(start), utf8.RuneCountInString(text), err)
	if err != nil {
		genErr = err
		return nil, err
	}
	return vec, nil
}

// knownDimension returns the output width of well known models, or 0.
func knownDimension(model string) int {
	return config.DimensionForModel(model)
}

func resolveDimension(model string, configured int) (int, error) {
	if configured > 0 {
		return configured, nil
	}
	if dim := knownDimension(model); dim > 0 {
		return dim, nil
	}
	return 0, fmt.Errorf("%w: dimension required for model %q", ErrInvalidConfig, model)
}
