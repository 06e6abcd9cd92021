package search

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Highlight markers wrapped around matched query terms.
const (
	highlightOpen  = "<mark>"
	highlightClose = "</mark>"
)

// DefaultHighlightWindow is the content length above which the highlighted
// text is truncated to a window centered on the first match.
const DefaultHighlightWindow = 300

const ellipsis = "..."

// Highlight wraps each whitespace-delimited query term found in content
// (case-insensitive) in highlight markers. Content longer than window is
// truncated to a window centered on the first match, with ellipsis markers
// where text was cut. A non-positive window uses DefaultHighlightWindow.
func Highlight(content, query string, window int) string {
	if window <= 0 {
		window = DefaultHighlightWindow
	}
	re := termPattern(query)

	if len(content) <= window {
		if re == nil {
			return content
		}
		return re.ReplaceAllString(content, highlightOpen+"$1"+highlightClose)
	}

	// Center the window on the first match; fall back to a head window.
	start := 0
	if re != nil {
		if loc := re.FindStringIndex(content); loc != nil {
			start = loc[0] - window/2
		}
	}
	if start > len(content)-window {
		start = len(content) - window
	}
	if start < 0 {
		start = 0
	}
	// Snap the window edges to rune starts so the snippet is valid UTF-8.
	for start > 0 && !utf8.RuneStart(content[start]) {
		start--
	}
	end := start + window
	for end < len(content) && !utf8.RuneStart(content[end]) {
		end++
	}

	snippet := content[start:end]
	if re != nil {
		snippet = re.ReplaceAllString(snippet, highlightOpen+"$1"+highlightClose)
	}
	if start > 0 {
		snippet = ellipsis + snippet
	}
	if end < len(content) {
		snippet = snippet + ellipsis
	}
	return snippet
}

// termPattern compiles a case-insensitive alternation of the query's
// whitespace-delimited terms, each regex-escaped. Returns nil for an empty query.
func termPattern(query string) *regexp.Regexp {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return nil
	}
	escaped := make([]string, len(terms))
	for i, term := range terms {
		escaped[i] = regexp.QuoteMeta(term)
	}
	re, err := regexp.Compile(`(?i)(` + strings.Join(escaped, "|") + `)`)
	if err != nil {
		return nil
	}
	return re
}
