package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fyrsmithlabs/mdsearch/internal/retrieval"
)

// DefaultClientTimeout bounds a single API call.
const DefaultClientTimeout = 2 * time.Minute

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
	if e.RequestID != "" {
		msg += " (request " + e.RequestID + ")"
	}
	return msg
}

// Client calls a running mdsearch server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for baseURL (e.g. "http://127.0.0.1:9191").
// A nil httpClient uses one with DefaultClientTimeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultClientTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// Health checks GET /health.
func (c *Client) Health(ctx context.Context) error {
	var out HealthResponse
	return c.do(ctx, http.MethodGet, "/health", nil, &out)
}

// Ingest posts a markdown document and returns the number of records stored.
func (c *Client) Ingest(ctx context.Context, text string) (int, error) {
	var out IngestResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/documents", IngestRequest{Text: text}, &out); err != nil {
		return 0, err
	}
	return out.Records, nil
}

// IngestChunks posts pre-split chunks.
func (c *Client) IngestChunks(ctx context.Context, chunks []string) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	var out IngestResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/documents", IngestRequest{Chunks: chunks}, &out); err != nil {
		return 0, err
	}
	return out.Records, nil
}

// Preview asks the server how text would be chunked.
func (c *Client) Preview(ctx context.Context, text string, limit int) (retrieval.PreviewResult, error) {
	var out retrieval.PreviewResult
	err := c.do(ctx, http.MethodPost, "/api/v1/preview", PreviewRequest{Text: text, Limit: limit}, &out)
	return out, err
}

// Search runs a similarity query. A zero topK uses the server default.
func (c *Client) Search(ctx context.Context, query string, topK int) ([]retrieval.Result, error) {
	var out SearchResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/search", SearchRequest{Query: query, TopK: topK}, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Count returns the number of stored records.
func (c *Client) Count(ctx context.Context) (int, error) {
	var out CountResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/index/count", nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var er ErrorResponse
		if json.Unmarshal(raw, &er) == nil && er.Error != "" {
			apiErr.Message = er.Error
			apiErr.RequestID = er.RequestID
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}
