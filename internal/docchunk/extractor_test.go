package docchunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sample = `# Title

Intro paragraph.

## Usage

Call ` + "`add(a, b)`" + ` to add two numbers.

### Examples

` + "```rust\nadd(1, 2);\n```" + `

## Configuration

Set the timeout in the config file.
`

func TestExtract_HeadingPaths(t *testing.T) {
	chunks, err := Extract("README.md", sample)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	byLevel := map[int][]Chunk{}
	for _, c := range chunks {
		byLevel[c.HeadingLevel] = append(byLevel[c.HeadingLevel], c)
	}

	require.Len(t, byLevel[1], 1)
	require.Equal(t, []string{"Title"}, byLevel[1][0].HeadingPath)

	var examples Chunk
	for _, c := range chunks {
		if c.HeadingLevel == 3 {
			examples = c
		}
	}
	require.Equal(t, []string{"Title", "Usage", "Examples"}, examples.HeadingPath)
	require.Contains(t, examples.Text, "add(1, 2);")
}

func TestExtract_FenceNotMisreadAsHeading(t *testing.T) {
	content := "# Title\n\n```\n# not a real heading\n```\n"
	chunks, err := Extract("doc.md", content)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Contains(t, chunks[0].Text, "# not a real heading")
}

func TestExtract_NoHeadingsYieldsSingleChunkWithEmptyPath(t *testing.T) {
	chunks, err := Extract("notes.md", "just some plain text\nwith no headings\n")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Empty(t, chunks[0].HeadingPath)
}

func TestExtract_EmptyContentYieldsNoChunks(t *testing.T) {
	chunks, err := Extract("empty.md", "   \n\n  ")
	require.NoError(t, err)
	require.Empty(t, chunks)
}

func TestExtract_ContentHashStableAcrossRereads(t *testing.T) {
	a, err := Extract("doc.md", sample)
	require.NoError(t, err)
	b, err := Extract("doc.md", sample)
	require.NoError(t, err)
	require.Equal(t, a[0].ContentHash, b[0].ContentHash)
}

func TestExtract_TextExcludesHeadingLine(t *testing.T) {
	content := "# Title\nbody1\nbody2\n## Sub\ncontent1\n"
	chunks, err := Extract("doc.md", content)
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	title := chunks[0]
	require.False(t, strings.HasPrefix(title.Text, "#"), "Text must not start with the heading line, got %q", title.Text)
	require.Equal(t, "body1\nbody2", title.Text)
	require.Equal(t, 1, title.StartLine)
	require.Equal(t, 3, title.EndLine)

	sub := chunks[1]
	require.Equal(t, "content1", sub.Text)
	require.Equal(t, 4, sub.StartLine)
	require.Equal(t, 6, sub.EndLine)
}

func TestExtract_PrecedingContentBecomesOwnSection(t *testing.T) {
	chunks, err := Extract("doc.md", "Preamble before any heading.\n\n"+sample)
	require.NoError(t, err)

	var found bool
	for _, c := range chunks {
		if len(c.HeadingPath) == 0 && strings.Contains(c.Text, "Preamble before any heading.") {
			found = true
		}
	}
	require.True(t, found)
}
