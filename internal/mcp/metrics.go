package mcp

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mdsearch/internal/retrieval"
)

const instrumentationName = "github.com/fyrsmithlabs/mdsearch/internal/mcp"

// Metrics records tool invocations on the global meter provider.
type Metrics struct {
	invocations metric.Int64Counter
	duration    metric.Float64Histogram
	errors      metric.Int64Counter
	active      metric.Int64UpDownCounter
}

// NewMetrics creates the tool instruments.
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	meter := otel.Meter(instrumentationName)
	m := &Metrics{}

	var err error
	m.invocations, err = meter.Int64Counter(
		"mdsearch.mcp.tool.invocations_total",
		metric.WithDescription("MCP tool invocations by tool"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		logger.Warn("failed to create invocations counter", zap.Error(err))
	}

	m.duration, err = meter.Float64Histogram(
		"mdsearch.mcp.tool.duration_seconds",
		metric.WithDescription("MCP tool latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.errors, err = meter.Int64Counter(
		"mdsearch.mcp.tool.errors_total",
		metric.WithDescription("MCP tool failures by tool and reason"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		logger.Warn("failed to create errors counter", zap.Error(err))
	}

	m.active, err = meter.Int64UpDownCounter(
		"mdsearch.mcp.tool.active_requests",
		metric.WithDescription("MCP tool calls in progress"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		logger.Warn("failed to create active requests counter", zap.Error(err))
	}

	return m
}

// track marks a tool call as started and returns the function that records
// its outcome.
func (m *Metrics) track(ctx context.Context, tool string) func(err error) {
	start := time.Now()
	attrs := metric.WithAttributes(attribute.String("tool", tool))
	if m.active != nil {
		m.active.Add(ctx, 1, attrs)
	}

	return func(err error) {
		if m.active != nil {
			m.active.Add(ctx, -1, attrs)
		}
		if m.invocations != nil {
			m.invocations.Add(ctx, 1, attrs)
		}
		if m.duration != nil {
			m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
		}
		if err != nil && m.errors != nil {
			m.errors.Add(ctx, 1, metric.WithAttributes(
				attribute.String("tool", tool),
				attribute.String("reason", errorReason(err)),
			))
		}
	}
}

func errorReason(err error) string {
	var (
		embErr   *retrieval.EmbeddingError
		ingErr   *retrieval.IngestionError
		queryErr *retrieval.QueryError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, retrieval.ErrInvalidInput):
		return "validation_error"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.As(err, &embErr):
		return "embedding_error"
	case errors.As(err, &ingErr), errors.As(err, &queryErr):
		return "storage_error"
	default:
		return "internal_error"
	}
}
