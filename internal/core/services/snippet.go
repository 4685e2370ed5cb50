package services

import "strings"

// snippetContextLines is how many lines of context surround the match.
const snippetContextLines = 2

// extractSnippet returns an excerpt around the first line containing the
// query (case-insensitive substring match), with up to two lines of
// context either side. When no line matches, the excerpt starts at the
// top of the document. The snippet is truncated to maxLen characters
// with a "..." suffix; the returned line range is 1-indexed inclusive.
func extractSnippet(content, query string, maxLen int) (snippet string, lineStart, lineEnd int) {
	lines := strings.Split(content, "\n")

	match := 0
	queryLower := strings.ToLower(query)
	for i, line := range lines {
		if strings.Contains(strings.ToLower(line), queryLower) {
			match = i
			break
		}
	}

	start := match - snippetContextLines
	if start < 0 {
		start = 0
	}
	end := match + snippetContextLines
	if end > len(lines)-1 {
		end = len(lines) - 1
	}

	snippet = strings.Join(lines[start:end+1], "\n")
	if maxLen > 0 && len(snippet) > maxLen {
		// Truncate on a rune boundary; a byte slice could split a
		// multibyte sequence and emit invalid UTF-8.
		if runes := []rune(snippet); len(runes) > maxLen {
			snippet = string(runes[:maxLen]) + "..."
		}
	}
	return snippet, start + 1, end + 1
}
