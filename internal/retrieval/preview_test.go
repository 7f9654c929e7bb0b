package retrieval

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/mdsearch/internal/segment"
)

func TestPreview(t *testing.T) {
	res := Preview(segment.New(), sampleDoc, 0)

	assert.Equal(t, len([]rune(sampleDoc)), res.TotalChars)
	assert.Equal(t, 3, res.ChunkCount)
	assert.Equal(t, []string{"no heading", "A", "B"}, res.Headings)
	assert.Zero(t, res.Remaining)
	assert.Len(t, res.Chunks, 3)
}

func TestPreview_Limit(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 14; i++ {
		fmt.Fprintf(&b, "## Section %d\nbody %d\n", i, i)
	}

	res := Preview(segment.New(), b.String(), 0)
	assert.Equal(t, 14, res.ChunkCount)
	assert.Len(t, res.Headings, DefaultPreviewHeadings)
	assert.Equal(t, "Section 0", res.Headings[0])
	assert.Equal(t, 4, res.Remaining)

	res = Preview(segment.New(), b.String(), 3)
	assert.Len(t, res.Headings, 3)
	assert.Equal(t, 11, res.Remaining)
}

func TestPreview_Empty(t *testing.T) {
	res := Preview(segment.New(), "  \n", 5)
	assert.Zero(t, res.ChunkCount)
	assert.Empty(t, res.Headings)
	assert.Zero(t, res.Remaining)
}
