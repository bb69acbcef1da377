// Package utils provides shared utilities for text, math, and logging.
package utils

import "strings"

// Summarize folds every whitespace run in s into one space and keeps at most
// maxRunes runes, marking a cut with "...". Response bodies are often multi-line
// JSON or HTML, and titles are often not ASCII, so the cut never splits a rune.
// A maxRunes of 0 or less only folds whitespace.
func Summarize(s string, maxRunes int) string {
	s = strings.Join(strings.Fields(s), " ")
	if maxRunes <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == maxRunes {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
