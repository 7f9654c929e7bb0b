package retrieval

import (
	"unicode/utf8"

	"github.com/fyrsmithlabs/mdsearch/internal/segment"
)

// DefaultPreviewHeadings is how many headings a preview lists.
const DefaultPreviewHeadings = 10

// PreviewResult summarizes how a document would be chunked.
type PreviewResult struct {
	TotalChars int      `json:"total_chars"`
	ChunkCount int      `json:"chunk_count"`
	Headings   []string `json:"headings"`
	// Remaining is the number of chunks not listed in Headings.
	Remaining int      `json:"remaining"`
	Chunks    []string `json:"chunks"`
}

// Preview segments text with seg and lists the first limit headings. A
// non-positive limit uses DefaultPreviewHeadings. No embedding or store call
// is made.
func Preview(seg *segment.Segmenter, text string, limit int) PreviewResult {
	if limit <= 0 {
		limit = DefaultPreviewHeadings
	}

	chunks := seg.Segment(text)
	shown := min(limit, len(chunks))

	headings := make([]string, shown)
	for i := range headings {
		headings[i] = segment.HeadingOrSentinel(chunks[i])
	}

	return PreviewResult{
		TotalChars: utf8.RuneCountInString(text),
		ChunkCount: len(chunks),
		Headings:   headings,
		Remaining:  len(chunks) - shown,
		Chunks:     chunks,
	}
}
