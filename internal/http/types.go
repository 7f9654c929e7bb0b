package http

import "github.com/fyrsmithlabs/mdsearch/internal/retrieval"

// IngestRequest is the body of POST /api/v1/documents. Exactly one of Text
// and Chunks is used; Chunks skips segmentation.
type IngestRequest struct {
	Text   string   `json:"text"`
	Chunks []string `json:"chunks,omitempty"`
}

// IngestResponse reports how many records were written.
type IngestResponse struct {
	Records int `json:"records"`
}

// PreviewRequest is the body of POST /api/v1/preview.
type PreviewRequest struct {
	Text  string `json:"text"`
	Limit int    `json:"limit,omitempty"`
}

// SearchRequest is the body of POST /api/v1/search. A zero TopK uses the
// configured default.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// SearchResponse holds ranked results, most similar first.
type SearchResponse struct {
	Query   string             `json:"query"`
	TopK    int                `json:"top_k"`
	Results []retrieval.Result `json:"results"`
}

// CountResponse is the body of GET /api/v1/index/count.
type CountResponse struct {
	Count int `json:"count"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is returned for every non-2xx status.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}
