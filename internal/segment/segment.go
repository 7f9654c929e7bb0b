// Package segment splits markdown documents into heading-aligned chunks.
//
// Documents are cut in front of every second-level heading line ("## ...").
// Sections longer than the configured maximum are re-split on blank-line
// paragraph boundaries. Lengths are measured in characters (runes), not bytes.
package segment

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxChunkSize is the default upper bound on chunk length in characters.
const DefaultMaxChunkSize = 1000

const paragraphSeparator = "\n\n"

// Segmenter splits markdown text into an ordered sequence of chunks.
//
// A Segmenter holds no mutable state and is safe for concurrent use.
type Segmenter struct {
	maxChunkSize int
	hardBound    bool
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithMaxChunkSize sets the maximum chunk length in characters.
// Non-positive values are ignored.
func WithMaxChunkSize(size int) Option {
	return func(s *Segmenter) {
		if size > 0 {
			s.maxChunkSize = size
		}
	}
}

// WithHardBound controls what happens to a single paragraph that is longer
// than the maximum on its own. By default (false) it is emitted whole. When
// true it is cut into consecutive windows of at most the maximum length.
func WithHardBound(hard bool) Option {
	return func(s *Segmenter) {
		s.hardBound = hard
	}
}

// New creates a Segmenter with the given options.
func New(opts ...Option) *Segmenter {
	s := &Segmenter{
		maxChunkSize: DefaultMaxChunkSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxChunkSize returns the configured maximum chunk length.
func (s *Segmenter) MaxChunkSize() int {
	return s.maxChunkSize
}

// HardBound reports whether oversized paragraphs are force-split.
func (s *Segmenter) HardBound() bool {
	return s.hardBound
}

// Segment splits text into chunks in document order. An empty or
// whitespace-only document yields an empty (nil) slice. No returned chunk is
// empty or whitespace-only.
func (s *Segmenter) Segment(text string) []string {
	var chunks []string
	for _, section := range splitSections(text) {
		section = strings.TrimSpace(section)
		if section == "" {
			continue
		}
		if runeLen(section) <= s.maxChunkSize {
			chunks = append(chunks, section)
			continue
		}
		chunks = append(chunks, s.splitParagraphs(section)...)
	}
	return chunks
}

// splitParagraphs greedily packs blank-line separated paragraphs into chunks
// no longer than the maximum.
func (s *Segmenter) splitParagraphs(section string) []string {
	var (
		chunks  []string
		buf     strings.Builder
		bufLen  int
		sepSize = runeLen(paragraphSeparator)
	)

	flush := func() {
		if out := strings.TrimSpace(buf.String()); out != "" {
			chunks = append(chunks, out)
		}
		buf.Reset()
		bufLen = 0
	}

	// Blank paragraphs stay in the buffer so runs of blank lines survive
	// inside a chunk; only blank flushes are dropped.
	for _, para := range strings.Split(section, paragraphSeparator) {
		paraLen := runeLen(para)

		if bufLen > 0 && bufLen+sepSize+paraLen > s.maxChunkSize {
			flush()
		}

		if s.hardBound && paraLen > s.maxChunkSize {
			flush()
			chunks = append(chunks, splitWindows(para, s.maxChunkSize)...)
			continue
		}

		if bufLen > 0 {
			buf.WriteString(paragraphSeparator)
			bufLen += sepSize
		}
		buf.WriteString(para)
		bufLen += paraLen
	}
	flush()

	return chunks
}

// splitSections cuts text at every newline that is immediately followed by a
// line starting with "##" and a whitespace character. The newline is dropped
// and the heading line begins the next section.
func splitSections(text string) []string {
	var (
		sections []string
		start    int
	)
	for i := 0; i < len(text); i++ {
		if text[i] != '\n' || !isHeadingStart(text[i+1:]) {
			continue
		}
		sections = append(sections, text[start:i])
		start = i + 1
	}
	return append(sections, text[start:])
}

func isHeadingStart(s string) bool {
	if !strings.HasPrefix(s, "##") {
		return false
	}
	r, size := utf8.DecodeRuneInString(s[2:])
	return size > 0 && unicode.IsSpace(r)
}

// splitWindows cuts s into pieces of at most size runes, dropping pieces that
// are blank after trimming.
func splitWindows(s string, size int) []string {
	var (
		out   []string
		runes = []rune(s)
	)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			out = append(out, piece)
		}
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
