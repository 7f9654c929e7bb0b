package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"empty line", "", nil},
		{"whitespace only", "   ", nil},
		{"comment", "# drafts", nil},
		{"negation skipped", "!keep.md", nil},
		{"bare slash", "/", nil},
		{"extension glob", "*.log", []string{"**/*.log", "**/*.log/**"}},
		{"name", "drafts", []string{"**/drafts", "**/drafts/**"}},
		{"directory only", "node_modules/", []string{"**/node_modules/**"}},
		{"anchored", "/dist", []string{"dist", "dist/**"}},
		{"nested path", "docs/archive", []string{"docs/archive", "docs/archive/**"}},
		{"already recursive", "vendor/**", []string{"vendor/**"}},
		{"double star prefix", "**/build", []string{"**/build", "**/build/**"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLine(tt.line))
		})
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		rel     string
		want    bool
	}{
		{"*.md", "README.md", true},
		{"*.md", "docs/README.md", false},
		{"**/*.md", "docs/README.md", true},
		{"**/*.md", "README.md", true},
		{"**/drafts/**", "drafts/a.md", true},
		{"**/drafts/**", "notes/drafts/deep/a.md", true},
		{"**/drafts/**", "notes/drafted/a.md", false},
		{"docs/archive/**", "docs/archive/2024/old.md", true},
		{"docs/archive/**", "docs/current.md", false},
		{"dist", "dist", true},
		{"dist", "src/dist", false},
		{"docs/*.md", "docs/a.md", true},
		{"docs/*.md", "docs/sub/a.md", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.pattern, tt.rel))
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("**/docs/*.md"))
	assert.Error(t, Validate("docs/[.md"))
}

func TestParserLoad(t *testing.T) {
	dir := t.TempDir()
	gitignore := `# Build outputs
dist/
build/

node_modules/
*.log
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".mdsearchignore"), []byte("node_modules/\ndrafts\n"), 0o644))

	patterns, err := NewParser().Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"**/dist/**",
		"**/build/**",
		"**/node_modules/**",
		"**/*.log",
		"**/*.log/**",
		"**/drafts",
		"**/drafts/**",
	}, patterns)
}

func TestParserLoad_NoFiles(t *testing.T) {
	patterns, err := NewParser(".gitignore").Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, patterns)
}

func TestDeduplicate(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c", "d"}, deduplicate([]string{"a", "b", "a", "c", "b", "d"}))
}
