package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mdsearch/internal/retrieval"
)

type searchInput struct {
	Query string `json:"query" jsonschema:"Natural-language query"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"Maximum results to return (default 5)"`
}

type searchOutput struct {
	Query   string             `json:"query" jsonschema:"Query used"`
	Results []retrieval.Result `json:"results" jsonschema:"Matching chunks, most similar first"`
	Count   int                `json:"count" jsonschema:"Number of results"`
}

type ingestInput struct {
	Text string `json:"text" jsonschema:"Markdown document to ingest"`
}

type ingestOutput struct {
	Records int `json:"records" jsonschema:"Number of chunks stored"`
}

type previewInput struct {
	Text  string `json:"text" jsonschema:"Markdown document to preview"`
	Limit int    `json:"limit,omitempty" jsonschema:"Number of headings to list (default 10)"`
}

type countInput struct{}

type countOutput struct {
	Count int `json:"count" jsonschema:"Records in the index"`
}

func (s *Server) registerTools() {
	s.registerSearchTool()
	s.registerIngestTool()
	s.registerPreviewTool()
	if s.services.Index != nil {
		s.registerCountTool()
	}
}

func (s *Server) registerSearchTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search_documents",
		Description: "Semantic search over ingested markdown. Returns the closest chunks with heading, chunk index, timestamp and a similarity score (1 = identical).",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args searchInput) (res *mcp.CallToolResult, out searchOutput, err error) {
		done := s.metrics.track(ctx, "search_documents")
		defer func() { done(err) }()

		topK := args.TopK
		if topK == 0 {
			topK = s.config.DefaultTopK
		}
		if topK > s.config.MaxTopK {
			return nil, searchOutput{}, fmt.Errorf("top_k must be at most %d", s.config.MaxTopK)
		}

		results, err := s.services.Searcher.Search(ctx, args.Query, topK)
		if err != nil {
			return nil, searchOutput{}, s.toolError("search_documents", err)
		}

		if results == nil {
			results = []retrieval.Result{}
		}
		out = searchOutput{Query: args.Query, Results: results, Count: len(results)}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: renderResults(args.Query, results)}},
		}, out, nil
	})
}

func (s *Server) registerIngestTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "ingest_markdown",
		Description: "Split a markdown document on ## headings, embed each chunk and store it for later search.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args ingestInput) (res *mcp.CallToolResult, out ingestOutput, err error) {
		done := s.metrics.track(ctx, "ingest_markdown")
		defer func() { done(err) }()

		n, err := s.services.Ingester.Ingest(ctx, args.Text)
		if err != nil {
			return nil, ingestOutput{}, s.toolError("ingest_markdown", err)
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Stored %d chunks.", n)}},
		}, ingestOutput{Records: n}, nil
	})
}

func (s *Server) registerPreviewTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "preview_markdown",
		Description: "Show how a markdown document would be chunked without storing anything.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args previewInput) (res *mcp.CallToolResult, out retrieval.PreviewResult, err error) {
		done := s.metrics.track(ctx, "preview_markdown")
		defer func() { done(err) }()

		if args.Limit < 0 {
			return nil, retrieval.PreviewResult{}, errors.New("limit must not be negative")
		}
		out = retrieval.Preview(s.services.Segmenter, args.Text, args.Limit)
		if out.Chunks == nil {
			out.Chunks = []string{}
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: renderPreview(out)}},
		}, out, nil
	})
}

func (s *Server) registerCountTool() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index_count",
		Description: "Number of chunks stored in the index.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ countInput) (res *mcp.CallToolResult, out countOutput, err error) {
		done := s.metrics.track(ctx, "index_count")
		defer func() { done(err) }()

		n, err := s.services.Index.Count(ctx)
		if err != nil {
			return nil, countOutput{}, s.toolError("index_count", err)
		}
		return nil, countOutput{Count: n}, nil
	})
}

// toolError logs non-validation failures and returns err for the SDK to
// report as a tool error.
func (s *Server) toolError(tool string, err error) error {
	if !errors.Is(err, retrieval.ErrInvalidInput) {
		s.logger.Warn("tool failed", zap.String("tool", tool), zap.Error(err))
	}
	return err
}

func renderResults(query string, results []retrieval.Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No results for %q.", query)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d results for %q:\n", len(results), query)
	for i, r := range results {
		fmt.Fprintf(&b, "\n%d. %s (score %.3f, chunk %d)\n%s\n",
			i+1, r.Metadata.Heading, r.Similarity, r.Metadata.ChunkIndex, r.Metadata.SourceText)
	}
	return b.String()
}

func renderPreview(p retrieval.PreviewResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d characters, %d chunks\n", p.TotalChars, p.ChunkCount)
	for i, h := range p.Headings {
		fmt.Fprintf(&b, "%d. %s\n", i+1, h)
	}
	if p.Remaining > 0 {
		fmt.Fprintf(&b, "... and %d more\n", p.Remaining)
	}
	return b.String()
}
