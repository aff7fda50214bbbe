package docchunk

import (
	"regexp"
	"strings"

	"github.com/docsentinel/docsentinel/internal/codechunk"
)

var (
	atxHeading = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*#*\s*$`)
	fence      = regexp.MustCompile("^(```|~~~)")
)

// section is one heading-scoped run of lines, mirroring the teacher
// chunker's internal section type but keyed by a full heading path instead
// of a single level-2-only index.
type section struct {
	headingPath  []string
	headingLevel int
	startLine    int
	lines        []string
}

// Extract splits content into heading-scoped chunks. A file with no ATX
// headings at all yields a single chunk with an empty heading path, so that
// READMEs without a top-level title still produce a mentionable section
// rather than nothing.
func Extract(path, content string) ([]Chunk, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	lines := strings.Split(content, "\n")
	sections := splitByHeadings(lines)

	chunks := make([]Chunk, 0, len(sections))
	for _, sec := range sections {
		// The section's own heading line is carried in sec.lines so
		// StartLine/EndLine span the whole section, but the heading itself
		// is not part of the content a doc chunk's Text represents.
		body := sec.lines
		if sec.headingLevel > 0 && len(body) > 0 {
			body = body[1:]
		}
		text := strings.TrimSpace(strings.Join(body, "\n"))
		if text == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			Path:         path,
			HeadingPath:  sec.headingPath,
			HeadingLevel: sec.headingLevel,
			Text:         text,
			StartLine:    sec.startLine,
			EndLine:      sec.startLine + len(sec.lines) - 1,
			ContentHash:  codechunk.ContentHash(text),
		})
	}

	return chunks, nil
}

// splitByHeadings walks lines tracking a stack of open headings per level,
// starting a new section at every ATX heading outside a fenced code block.
// Fence state is tracked so a "#" line inside a fenced block stays part of
// the section instead of starting a new one; only a line whose trimmed text
// begins with ``` or ~~~ opens or closes a fence.
func splitByHeadings(lines []string) []section {
	var sections []section
	stack := make([]string, 0, 6)
	inFence := false

	current := section{startLine: 1, headingPath: append([]string{}, stack...)}

	flush := func() {
		if len(current.lines) > 0 {
			sections = append(sections, current)
		}
	}

	for i, line := range lines {
		if fence.MatchString(strings.TrimSpace(line)) {
			inFence = !inFence
			current.lines = append(current.lines, line)
			continue
		}

		if !inFence {
			if m := atxHeading.FindStringSubmatch(line); m != nil {
				level := len(m[1])
				title := m[2]

				flush()

				if level-1 < len(stack) {
					stack = stack[:level-1]
				}
				for len(stack) < level-1 {
					stack = append(stack, "")
				}
				stack = append(stack, title)

				current = section{
					headingPath:  append([]string{}, stack...),
					headingLevel: level,
					startLine:    i + 1,
					lines:        []string{line},
				}
				continue
			}
		}

		current.lines = append(current.lines, line)
	}

	flush()
	return sections
}
