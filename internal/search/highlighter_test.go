package search

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestHighlightMarksAllTerms(t *testing.T) {
	got := Highlight("Bayesian inference over graphical models", "bayesian models", 300)
	want := "<mark>Bayesian</mark> inference over graphical <mark>models</mark>"
	if got != want {
		t.Errorf("Highlight() = %q, want %q", got, want)
	}
}

func TestHighlightCaseInsensitivePreservesOriginal(t *testing.T) {
	got := Highlight("GRADIENT descent and Gradient flow", "gradient", 300)
	if !strings.Contains(got, "<mark>GRADIENT</mark>") || !strings.Contains(got, "<mark>Gradient</mark>") {
		t.Errorf("original casing not preserved inside markers: %q", got)
	}
}

func TestHighlightNoMatchShortContent(t *testing.T) {
	content := "nothing relevant here"
	if got := Highlight(content, "quantum", 300); got != content {
		t.Errorf("Highlight() = %q, want unchanged content", got)
	}
}

func TestHighlightTruncatesAroundFirstMatch(t *testing.T) {
	content := strings.Repeat("a", 500) + " needle " + strings.Repeat("b", 500)
	got := Highlight(content, "needle", 300)

	if !strings.Contains(got, "<mark>needle</mark>") {
		t.Fatalf("match not highlighted: %q", got)
	}
	if !strings.HasPrefix(got, "...") || !strings.HasSuffix(got, "...") {
		t.Errorf("expected ellipsis on both ends, got %q", got)
	}
	if len(got) > 350 {
		t.Errorf("snippet too long: %d chars", len(got))
	}
}

func TestHighlightTruncatesHeadWhenNoMatch(t *testing.T) {
	content := strings.Repeat("x", 1000)
	got := Highlight(content, "needle", 300)
	if !strings.HasPrefix(got, strings.Repeat("x", 300)) {
		t.Errorf("expected head window, got %q...", got[:20])
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected trailing ellipsis, got suffix %q", got[len(got)-5:])
	}
}

func TestHighlightMatchNearStart(t *testing.T) {
	content := "needle " + strings.Repeat("b", 500)
	got := Highlight(content, "needle", 300)
	if strings.HasPrefix(got, "...") {
		t.Errorf("unexpected leading ellipsis when match is at the start: %q", got[:20])
	}
	if !strings.HasPrefix(got, "<mark>needle</mark>") {
		t.Errorf("expected highlighted match at start, got %q", got[:30])
	}
}

func TestHighlightEmptyQuery(t *testing.T) {
	content := "some content"
	if got := Highlight(content, "   ", 300); got != content {
		t.Errorf("Highlight() = %q, want unchanged content", got)
	}
}

func TestHighlightWindowKeepsRunesIntact(t *testing.T) {
	// Window edges land inside the 3-byte snowman encodings on both sides.
	content := "x" + strings.Repeat("☃", 300) + " needle " + strings.Repeat("☃", 300)
	got := Highlight(content, "needle", 300)

	if !strings.Contains(got, "<mark>needle</mark>") {
		t.Fatalf("match not highlighted: %q", got)
	}
	if !utf8.ValidString(got) {
		t.Errorf("snippet is not valid UTF-8: %q", got)
	}
	if strings.Contains(got, "�") {
		t.Errorf("snippet contains a replacement character: %q", got)
	}
}

func TestHighlightQuotesRegexMetacharacters(t *testing.T) {
	got := Highlight("cost is f(x) today", "f(x)", 300)
	if !strings.Contains(got, "<mark>f(x)</mark>") {
		t.Errorf("metacharacter term not matched literally: %q", got)
	}
}
