package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractHeading(t *testing.T) {
	tests := []struct {
		name   string
		chunk  string
		want   string
		wantOK bool
	}{
		{name: "heading with space", chunk: "## A\nbody A", want: "A", wantOK: true},
		{name: "no heading", chunk: "intro text", want: "", wantOK: false},
		{name: "bare marker", chunk: "##NoSpace\nbody", want: "NoSpace", wantOK: true},
		{name: "indented line is trimmed", chunk: "   ##   Spaced out  \nbody", want: "Spaced out", wantOK: true},
		{name: "first heading wins", chunk: "lead\n## First\n## Second", want: "First", wantOK: true},
		{name: "deeper heading keeps extra marker", chunk: "### Sub", want: "# Sub", wantOK: true},
		{name: "empty heading", chunk: "##\nbody", want: "", wantOK: true},
		{name: "first level heading ignored", chunk: "# Title\ntext", want: "", wantOK: false},
		{name: "unicode heading", chunk: "## 概要\n本文", want: "概要", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractHeading(tt.chunk)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestHeadingOrSentinel(t *testing.T) {
	chunks := New().Segment("intro text\n## A\nbody A\n## B\nbody B")

	assert.Equal(t, NoHeading, HeadingOrSentinel(chunks[0]))
	assert.Equal(t, "A", HeadingOrSentinel(chunks[1]))
	assert.Equal(t, "B", HeadingOrSentinel(chunks[2]))
}

func TestExtractHeading_Idempotent(t *testing.T) {
	for _, chunk := range []string{"## A\nbody", "plain", "x\n##  B  "} {
		first, ok1 := ExtractHeading(chunk)
		second, ok2 := ExtractHeading(chunk)
		assert.Equal(t, first, second)
		assert.Equal(t, ok1, ok2)
	}
}
