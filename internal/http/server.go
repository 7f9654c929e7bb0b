// Package http serves the mdsearch REST API.
//
// Routes:
//
//	GET  /health              liveness
//	GET  /metrics             Prometheus exposition
//	POST /api/v1/documents    ingest a document or pre-split chunks
//	POST /api/v1/preview      show how a document would be chunked
//	POST /api/v1/search       similarity search
//	GET  /api/v1/index/count  number of stored records
//
// Validation failures return 400, embedding failures 502, store failures
// 503 and deadline overruns 504. Error bodies are ErrorResponse.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mdsearch/internal/config"
	"github.com/fyrsmithlabs/mdsearch/internal/logging"
	"github.com/fyrsmithlabs/mdsearch/internal/retrieval"
	"github.com/fyrsmithlabs/mdsearch/internal/segment"
)

// Ingester writes documents to the index.
type Ingester interface {
	Ingest(ctx context.Context, text string) (int, error)
	IngestChunks(ctx context.Context, chunks []string) (int, error)
}

// Searcher answers similarity queries.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]retrieval.Result, error)
}

// Counter reports the number of stored records.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Services are the pipeline components behind the API. Index may be nil,
// in which case the count route answers 501.
type Services struct {
	Ingester  Ingester
	Searcher  Searcher
	Segmenter *segment.Segmenter
	Index     Counter
}

// Config holds HTTP server configuration.
type Config struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	DefaultTopK    int
	MaxTopK        int
}

// ConfigFrom builds a server Config from the application config.
func ConfigFrom(cfg *config.Config) *Config {
	return &Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		RequestTimeout: cfg.Server.RequestTimeout.Duration(),
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		DefaultTopK:    cfg.Search.DefaultTopK,
		MaxTopK:        cfg.Search.MaxTopK,
	}
}

func (c *Config) withDefaults() *Config {
	out := *c
	if out.Host == "" {
		out.Host = "127.0.0.1"
	}
	if out.Port == 0 {
		out.Port = 9191
	}
	if out.DefaultTopK <= 0 {
		out.DefaultTopK = 5
	}
	if out.MaxTopK <= 0 {
		out.MaxTopK = 30
	}
	return &out
}

// Server provides the HTTP endpoints.
type Server struct {
	echo     *echo.Echo
	services Services
	logger   *zap.Logger
	config   *Config
}

// NewServer creates a Server. A nil cfg uses defaults.
func NewServer(svc Services, logger *zap.Logger, cfg *Config) (*Server, error) {
	if svc.Ingester == nil || svc.Searcher == nil {
		return nil, errors.New("ingester and searcher are required")
	}
	if logger == nil {
		return nil, errors.New("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if svc.Segmenter == nil {
		svc.Segmenter = segment.New()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		services: svc,
		logger:   logger,
		config:   cfg.withDefaults(),
	}
	e.HTTPErrorHandler = s.errorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestContext)
	e.Use(NewMetrics(logger).Middleware())
	e.Use(s.accessLog)
	if s.config.MaxBodyBytes > 0 {
		e.Use(middleware.BodyLimit(strconv.FormatInt(s.config.MaxBodyBytes, 10)))
	}
	if s.config.RequestTimeout > 0 {
		e.Use(middleware.ContextTimeout(s.config.RequestTimeout))
	}

	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/documents", s.handleIngest)
	v1.POST("/preview", s.handlePreview)
	v1.POST("/search", s.handleSearch)
	v1.GET("/index/count", s.handleCount)
}

// requestContext copies the request ID into the request context so that
// logs written further down carry it.
func (s *Server) requestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Response().Header().Get(echo.HeaderXRequestID)
		req := c.Request()
		c.SetRequest(req.WithContext(logging.WithRequestID(req.Context(), id)))
		return next(c)
	}
}

func (s *Server) accessLog(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		s.logger.Info("http request", append(logging.ContextFields(c.Request().Context()),
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", time.Since(start)),
		)...)
		return nil
	}
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
}

// Start listens on the configured address and blocks until the server
// stops. It returns nil after a graceful Shutdown.
func (s *Server) Start() error {
	addr := s.Addr()
	s.logger.Info("starting http server", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
