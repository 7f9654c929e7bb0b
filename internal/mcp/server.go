// Package mcp exposes the retrieval pipeline as Model Context Protocol tools.
//
// Tools:
//   - search_documents: similarity search over ingested chunks
//   - ingest_markdown: segment, embed and store a markdown document
//   - preview_markdown: show how a document would be chunked
//   - index_count: number of stored records (when the store supports it)
package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mdsearch/internal/retrieval"
	"github.com/fyrsmithlabs/mdsearch/internal/segment"
)

// Ingester writes documents to the index.
type Ingester interface {
	Ingest(ctx context.Context, text string) (int, error)
}

// Searcher answers similarity queries.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]retrieval.Result, error)
}

// Counter reports the number of stored records.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Services are the pipeline components behind the tools. Index is optional.
type Services struct {
	Ingester  Ingester
	Searcher  Searcher
	Segmenter *segment.Segmenter
	Index     Counter
}

// Config configures the MCP server.
type Config struct {
	// Name is the implementation name reported to clients.
	Name string

	// Version is the implementation version reported to clients.
	Version string

	// DefaultTopK is used when a search omits top_k.
	DefaultTopK int

	// MaxTopK caps top_k.
	MaxTopK int

	Logger *zap.Logger
}

// DefaultConfig returns the default server identity and search limits.
func DefaultConfig() *Config {
	return &Config{
		Name:        "mdsearch",
		Version:     "dev",
		DefaultTopK: 5,
		MaxTopK:     30,
		Logger:      zap.NewNop(),
	}
}

// Server wraps an mcp.Server with the mdsearch tools registered.
type Server struct {
	mcp      *mcp.Server
	services Services
	config   *Config
	metrics  *Metrics
	logger   *zap.Logger
}

// NewServer creates a Server and registers its tools.
func NewServer(cfg *Config, svc Services) (*Server, error) {
	if svc.Ingester == nil {
		return nil, errors.New("ingester is required")
	}
	if svc.Searcher == nil {
		return nil, errors.New("searcher is required")
	}

	def := DefaultConfig()
	if cfg == nil {
		cfg = def
	}
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.Version == "" {
		cfg.Version = def.Version
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = def.DefaultTopK
	}
	if cfg.MaxTopK <= 0 {
		cfg.MaxTopK = def.MaxTopK
	}
	if cfg.Logger == nil {
		cfg.Logger = def.Logger
	}
	if svc.Segmenter == nil {
		svc.Segmenter = segment.New()
	}

	s := &Server{
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		services: svc,
		config:   cfg,
		metrics:  NewMetrics(cfg.Logger),
		logger:   cfg.Logger,
	}
	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Run serves on stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.RunTransport(ctx, &mcp.StdioTransport{})
}

// RunTransport serves on t.
func (s *Server) RunTransport(ctx context.Context, t mcp.Transport) error {
	s.logger.Info("starting MCP server")
	if err := s.mcp.Run(ctx, t); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}
