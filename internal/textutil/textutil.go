// Package textutil provides the small text transforms shared by the
// ingest pipeline: HTML-fragment cleanup and order-preserving dedup.
package textutil

import (
	"html"
	"regexp"
	"strings"
)

var (
	brPattern  = regexp.MustCompile(`(?i)<br\s*/?>`)
	tagPattern = regexp.MustCompile(`<[^>]+>`)
	wsPattern  = regexp.MustCompile(`\s+`)
)

// StripHTML removes markup tags from a text fragment, decodes HTML
// entities, collapses whitespace runs to single spaces and trims the
// result. Empty input yields an empty string. Idempotent.
func StripHTML(s string) string {
	s = html.UnescapeString(s)
	s = brPattern.ReplaceAllString(s, "\n")
	s = tagPattern.ReplaceAllString(s, " ")
	s = wsPattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Dedup returns seq with later duplicates removed, preserving the order
// and exact form of each first occurrence. Comparison is exact-string;
// any normalization is the caller's responsibility.
func Dedup(seq []string) []string {
	seen := make(map[string]bool, len(seq))
	out := make([]string, 0, len(seq))
	for _, s := range seq {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
