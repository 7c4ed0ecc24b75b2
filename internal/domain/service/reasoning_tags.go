package service

import "strings"

// stripReasoningTags removes <thinking>...</thinking>-style blocks some
// providers emit inline in content before it is persisted as the visible
// assistant message (SPEC_FULL.md §1.3). Raw deltas are still forwarded to
// assistant_chunk events untouched — only the persisted content is
// cleaned.
func stripReasoningTags(content string) string {
	const open, close = "<thinking>", "</thinking>"
	for {
		start := strings.Index(content, open)
		if start == -1 {
			return content
		}
		end := strings.Index(content[start:], close)
		if end == -1 {
			// Unterminated block: drop everything from the opening tag on.
			return content[:start]
		}
		content = content[:start] + content[start+end+len(close):]
	}
}
