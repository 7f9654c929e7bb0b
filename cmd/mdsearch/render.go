package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/mdsearch/internal/repository"
	"github.com/fyrsmithlabs/mdsearch/internal/retrieval"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	headingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	scoreStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	bodyStyle = lipgloss.NewStyle().
			PaddingLeft(4)

	plain bool
)

func disableColor() { plain = true }

func render(s lipgloss.Style, text string) string {
	if plain {
		return text
	}
	return s.Render(text)
}

func indent(text string) string {
	if plain {
		return "    " + strings.ReplaceAll(text, "\n", "\n    ")
	}
	return bodyStyle.Render(text)
}

func renderSearch(w io.Writer, query string, results []retrieval.Result) {
	if len(results) == 0 {
		fmt.Fprintf(w, "No results for %q.\n", query)
		return
	}

	fmt.Fprintln(w, render(titleStyle, fmt.Sprintf("%d results for %q", len(results), query)))
	for i, r := range results {
		md := r.Metadata
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%2d. %s  %s\n", i+1,
			render(headingStyle, md.Heading),
			render(scoreStyle, fmt.Sprintf("score %.3f", r.Similarity)))
		fmt.Fprintln(w, render(dimStyle, fmt.Sprintf("    chunk %d · %s · %d chars", md.ChunkIndex, md.Timestamp, md.FullLength)))
		fmt.Fprintln(w, indent(md.SourceText))
	}
}

func renderPreview(w io.Writer, name string, p retrieval.PreviewResult) {
	title := "Preview"
	if name != "" {
		title += " of " + name
	}
	fmt.Fprintln(w, render(titleStyle, title))
	fmt.Fprintf(w, "  Characters: %d\n", p.TotalChars)
	fmt.Fprintf(w, "  Chunks:     %d\n", p.ChunkCount)
	if len(p.Headings) == 0 {
		return
	}
	fmt.Fprintln(w, "  Headings:")
	for i, h := range p.Headings {
		fmt.Fprintf(w, "    %d. %s\n", i+1, render(headingStyle, h))
	}
	if p.Remaining > 0 {
		fmt.Fprintln(w, render(dimStyle, fmt.Sprintf("    ... and %d more", p.Remaining)))
	}
}

func renderIngest(w io.Writer, source string, records int) {
	fmt.Fprintf(w, "%s %s\n", render(scoreStyle, fmt.Sprintf("%d chunks", records)), render(dimStyle, "from "+source))
}

func renderIndexResult(w io.Writer, res *repository.IndexResult) {
	for _, f := range res.Files {
		renderIngest(w, f.Path, f.Records)
	}
	for _, s := range res.Skipped {
		fmt.Fprintln(w, render(dimStyle, "skipped "+s))
	}
	fmt.Fprintln(w, render(titleStyle, fmt.Sprintf("%d chunks from %d files in %s", res.Records, len(res.Files), res.Root)))
}
