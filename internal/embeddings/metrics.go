package embeddings

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const meterName = "github.com/fyrsmithlabs/mdsearch/internal/embeddings"

// Metrics records per-call embedding instruments. A nil *Metrics records nothing.
type Metrics struct {
	logger     *zap.Logger
	duration   metric.Float64Histogram
	inputRunes metric.Int64Histogram
	throttled  metric.Float64Histogram
	errors     metric.Int64Counter
}

// NewMetrics registers the instruments on the global meter provider.
func NewMetrics(logger *zap.Logger) *Metrics {
	return newMetrics(otel.Meter(meterName), logger)
}

func newMetrics(meter metric.Meter, logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{logger: logger}

	var err error
	m.duration, err = meter.Float64Histogram(
		"mdsearch.embedding.duration_seconds",
		metric.WithDescription("Time spent in the provider per embedding call, by model and operation (embed, embed_query)."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	m.warn("duration", err)

	// Chunks are bounded by the segmenter, so the top buckets sit around the
	// default chunk size and the 8k-token provider limits.
	m.inputRunes, err = meter.Int64Histogram(
		"mdsearch.embedding.input_chars",
		metric.WithDescription("Characters per embedded text."),
		metric.WithUnit("{char}"),
		metric.WithExplicitBucketBoundaries(16, 64, 256, 512, 1000, 2000, 4000, 8000, 16000),
	)
	m.warn("input size", err)

	m.throttled, err = meter.Float64Histogram(
		"mdsearch.embedding.throttle_wait_seconds",
		metric.WithDescription("Time spent waiting on the client-side rate limiter."),
		metric.WithUnit("s"),
	)
	m.warn("throttle wait", err)

	m.errors, err = meter.Int64Counter(
		"mdsearch.embedding.errors_total",
		metric.WithDescription("Failed embedding calls by model, operation and reason (timeout, canceled, provider)."),
		metric.WithUnit("{error}"),
	)
	m.warn("errors", err)

	return m
}

func (m *Metrics) warn(name string, err error) {
	if err != nil {
		m.logger.Warn("failed to create embedding instrument", zap.String("instrument", name), zap.Error(err))
	}
}

// RecordCall records one provider call of inputChars characters.
func (m *Metrics) RecordCall(ctx context.Context, model, op string, d time.Duration, inputChars int, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("operation", op),
	)
	if m.duration != nil {
		m.duration.Record(ctx, d.Seconds(), attrs)
	}
	if m.inputRunes != nil {
		m.inputRunes.Record(ctx, int64(inputChars), attrs)
	}
	if err != nil && m.errors != nil {
		m.errors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("model", model),
			attribute.String("operation", op),
			attribute.String("reason", failureReason(err)),
		))
	}
}

// RecordThrottle records time spent blocked on the rate limiter.
func (m *Metrics) RecordThrottle(ctx context.Context, model string, wait time.Duration) {
	if m == nil || m.throttled == nil {
		return
	}
	m.throttled.Record(ctx, wait.Seconds(), metric.WithAttributes(attribute.String("model", model)))
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "provider"
	}
}
