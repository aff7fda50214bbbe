package embedindex

import "strings"

const (
	codeBodyPreviewLimit = 1024
	docContentLimit      = 2048
)

// CodeInputText composes the embedding input text for a code chunk per the
// qualified-name/signature/body-preview layout: trailing whitespace per
// line is collapsed and the body is truncated to its first 1024 characters
// so a handful of oversized functions can't dominate a batch request.
func CodeInputText(qualifiedName, signature, body string) string {
	preview := body
	if len(preview) > codeBodyPreviewLimit {
		preview = preview[:codeBodyPreviewLimit]
	}
	return collapseTrailingWhitespace(qualifiedName) + "\n" +
		collapseTrailingWhitespace(signature) + "\n" +
		collapseTrailingWhitespace(preview)
}

// DocInputText composes the embedding input text for a doc chunk: the
// heading path joined by " > ", then the section content, truncated to
// 2048 characters.
func DocInputText(headingPath []string, content string) string {
	text := content
	if len(text) > docContentLimit {
		text = text[:docContentLimit]
	}
	return strings.Join(headingPath, " > ") + "\n" + text
}

func collapseTrailingWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	return strings.Join(lines, "\n")
}
