package segment

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmenter_Segment(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
		text string
		want []string
	}{
		{
			name: "intro and two headings",
			text: "intro text\n## A\nbody A\n## B\nbody B",
			want: []string{"intro text", "## A\nbody A", "## B\nbody B"},
		},
		{
			name: "empty document",
			text: "",
			want: nil,
		},
		{
			name: "whitespace only document",
			text: " \n\n\t \n",
			want: nil,
		},
		{
			name: "no headings",
			text: "just some text\nover two lines",
			want: []string{"just some text\nover two lines"},
		},
		{
			name: "document starting with heading",
			text: "## Only\nbody",
			want: []string{"## Only\nbody"},
		},
		{
			name: "third level heading is not a boundary",
			text: "## A\nx\n### Sub\ny",
			want: []string{"## A\nx\n### Sub\ny"},
		},
		{
			name: "marker without whitespace is not a boundary",
			text: "a\n##NoSpace",
			want: []string{"a\n##NoSpace"},
		},
		{
			name: "tab after marker is a boundary",
			text: "a\n##\tTabbed",
			want: []string{"a", "##\tTabbed"},
		},
		{
			name: "blank sections are dropped",
			text: "\n## A\n\n\n## B\nb",
			want: []string{"## A", "## B\nb"},
		},
		{
			name: "oversized section is packed by paragraph",
			opts: []Option{WithMaxChunkSize(50)},
			text: "## H\n\n" + strings.Repeat("b", 30) + "\n\n" + strings.Repeat("c", 30),
			want: []string{"## H\n\n" + strings.Repeat("b", 30), strings.Repeat("c", 30)},
		},
		{
			name: "paragraph sizes count characters not bytes",
			opts: []Option{WithMaxChunkSize(5)},
			text: "あいう\n\nえおか",
			want: []string{"あいう", "えおか"},
		},
		{
			name: "paragraphs that fit stay together",
			opts: []Option{WithMaxChunkSize(12)},
			text: "aaaa\n\nbbbb\n\ncccc\n\ndddd",
			want: []string{"aaaa\n\nbbbb", "cccc\n\ndddd"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := New(tt.opts...).Segment(tt.text)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSegmenter_SoftBound(t *testing.T) {
	para := strings.Repeat("x", 1500)

	chunks := New().Segment(para)

	require.Len(t, chunks, 1)
	assert.Equal(t, 1500, utf8.RuneCountInString(chunks[0]))
}

func TestSegmenter_SoftBoundBetweenParagraphs(t *testing.T) {
	long := strings.Repeat("x", 30)
	text := "short\n\n" + long + "\n\ntail"

	chunks := New(WithMaxChunkSize(20)).Segment(text)

	assert.Equal(t, []string{"short", long, "tail"}, chunks)
}

func TestSegmenter_KeepsBlankLinesInsideSplitSection(t *testing.T) {
	long := strings.Repeat("c", 30)
	text := "## H\n\naaaa\n\n\n\nbbbb\n\n" + long

	chunks := New(WithMaxChunkSize(20)).Segment(text)

	assert.Equal(t, []string{"## H\n\naaaa\n\n\n\nbbbb", long}, chunks)
}

func TestSegmenter_HardBound(t *testing.T) {
	para := strings.Repeat("x", 1500)

	chunks := New(WithHardBound(true)).Segment(para)

	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0], 1000)
	assert.Len(t, chunks[1], 500)
}

func TestSegmenter_HardBoundFlushesBuffer(t *testing.T) {
	long := strings.Repeat("y", 25)
	text := "head\n\n" + long + "\n\nend"

	chunks := New(WithMaxChunkSize(10), WithHardBound(true)).Segment(text)

	assert.Equal(t, []string{"head", "yyyyyyyyyy", "yyyyyyyyyy", "yyyyy", "end"}, chunks)
}

func TestNew_Options(t *testing.T) {
	s := New()
	assert.Equal(t, DefaultMaxChunkSize, s.MaxChunkSize())
	assert.False(t, s.HardBound())

	s = New(WithMaxChunkSize(-3), WithHardBound(true))
	assert.Equal(t, DefaultMaxChunkSize, s.MaxChunkSize())
	assert.True(t, s.HardBound())
}

func TestSegmenter_HeadingCountProperty(t *testing.T) {
	s := New()

	for n := 0; n <= 12; n++ {
		for _, withIntro := range []bool{false, true} {
			t.Run(fmt.Sprintf("n=%d/intro=%t", n, withIntro), func(t *testing.T) {
				var parts []string
				if withIntro {
					parts = append(parts, "preamble line")
				}
				for i := 0; i < n; i++ {
					parts = append(parts, fmt.Sprintf("## Section %d\nbody of section %d\n\nsecond paragraph", i, i))
				}
				doc := strings.Join(parts, "\n")

				chunks := s.Segment(doc)

				want := n
				if withIntro {
					want++
				}
				require.Len(t, chunks, want)
				assert.Equal(t, doc, strings.Join(chunks, "\n"))
			})
		}
	}
}

func TestSegmenter_ChunkInvariants(t *testing.T) {
	const maxSize = 80

	var b strings.Builder
	b.WriteString("Lead paragraph.\n\n")
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "## Heading %d\n", i)
		for p := 0; p <= i%5; p++ {
			b.WriteString(strings.Repeat(fmt.Sprintf("w%d ", p), 3+i))
			b.WriteString("\n\n")
		}
	}

	chunks := New(WithMaxChunkSize(maxSize)).Segment(b.String())

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(c))
		assert.Equal(t, strings.TrimSpace(c), c)
		if utf8.RuneCountInString(c) > maxSize {
			assert.NotContains(t, c, paragraphSeparator, "only a single paragraph may exceed the bound")
		}
	}
}
