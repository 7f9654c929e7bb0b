package http

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mdsearch/internal/logging"
	"github.com/fyrsmithlabs/mdsearch/internal/retrieval"
)

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleIngest(c echo.Context) error {
	var req IngestRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	var (
		n   int
		err error
	)
	switch {
	case len(req.Chunks) > 0 && req.Text != "":
		return echo.NewHTTPError(http.StatusBadRequest, "provide either text or chunks, not both")
	case len(req.Chunks) > 0:
		n, err = s.services.Ingester.IngestChunks(ctx, req.Chunks)
	default:
		n, err = s.services.Ingester.Ingest(ctx, req.Text)
	}
	if err != nil {
		return pipelineError(err)
	}

	s.logger.Debug("document ingested", append(logging.ContextFields(ctx), zap.Int("records", n))...)
	return c.JSON(http.StatusCreated, IngestResponse{Records: n})
}

func (s *Server) handlePreview(c echo.Context) error {
	var req PreviewRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Limit < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "limit must not be negative")
	}
	return c.JSON(http.StatusOK, retrieval.Preview(s.services.Segmenter, req.Text, req.Limit))
}

func (s *Server) handleSearch(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	topK := req.TopK
	if topK == 0 {
		topK = s.config.DefaultTopK
	}
	if topK > s.config.MaxTopK {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("top_k must be at most %d", s.config.MaxTopK))
	}

	results, err := s.services.Searcher.Search(c.Request().Context(), req.Query, topK)
	if err != nil {
		return pipelineError(err)
	}
	return c.JSON(http.StatusOK, SearchResponse{Query: req.Query, TopK: topK, Results: results})
}

func (s *Server) handleCount(c echo.Context) error {
	if s.services.Index == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "index administration not available")
	}
	n, err := s.services.Index.Count(c.Request().Context())
	if err != nil {
		return &echo.HTTPError{Code: http.StatusServiceUnavailable, Message: "index unavailable", Internal: err}
	}
	return c.JSON(http.StatusOK, CountResponse{Count: n})
}
