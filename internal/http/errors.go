package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mdsearch/internal/logging"
	"github.com/fyrsmithlabs/mdsearch/internal/retrieval"
)

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		embErr   *retrieval.EmbeddingError
		ingErr   *retrieval.IngestionError
		queryErr *retrieval.QueryError
	)
	switch {
	case errors.Is(err, retrieval.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &embErr):
		return http.StatusBadGateway
	case errors.As(err, &ingErr), errors.As(err, &queryErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// pipelineError converts err into an *echo.HTTPError carrying the mapped
// status. Internal details are only exposed for client errors.
func pipelineError(err error) *echo.HTTPError {
	status := statusFor(err)
	msg := http.StatusText(status)
	if status == http.StatusBadRequest {
		msg = err.Error()
	}
	return &echo.HTTPError{Code: status, Message: msg, Internal: err}
}

// errorHandler renders every error as an ErrorResponse.
func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	he := &echo.HTTPError{}
	if !errors.As(err, &he) {
		he = pipelineError(err)
	}

	msg, ok := he.Message.(string)
	if !ok {
		msg = http.StatusText(he.Code)
	}

	ctx := c.Request().Context()
	if he.Code >= http.StatusInternalServerError {
		cause := err
		if he.Internal != nil {
			cause = he.Internal
		}
		s.logger.Error("request failed", append(logging.ContextFields(ctx),
			zap.Int("status", he.Code),
			zap.String("path", c.Path()),
			zap.Error(cause),
		)...)
	}

	resp := ErrorResponse{Error: msg, RequestID: logging.RequestIDFromContext(ctx)}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(he.Code)
		return
	}
	_ = c.JSON(he.Code, resp)
}
