package segment

import "strings"

// NoHeading is the label shown for chunks without a second-level heading.
const NoHeading = "no heading"

// ExtractHeading returns the text of the first second-level heading line in
// chunk. Lines are trimmed before matching; "## Title" and "##Title" both
// yield "Title". ok is false when no line starts with "##".
func ExtractHeading(chunk string) (heading string, ok bool) {
	for _, line := range strings.Split(chunk, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "## "):
			return strings.TrimSpace(line[3:]), true
		case strings.HasPrefix(line, "##"):
			return strings.TrimSpace(line[2:]), true
		}
	}
	return "", false
}

// HeadingOrSentinel returns the chunk's heading, or NoHeading when it has none.
func HeadingOrSentinel(chunk string) string {
	if h, ok := ExtractHeading(chunk); ok {
		return h
	}
	return NoHeading
}
