package utils

import (
	"testing"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		maxRunes int
		want     string
	}{
		{"short string unchanged", "hello", 10, "hello"},
		{"cut with marker", "hello world", 5, "hello..."},
		{"exact length not marked", "hello", 5, "hello"},
		{"whitespace folded", "  {\"error\":\n\t\"bad\"}  ", 0, "{\"error\": \"bad\"}"},
		{"cut on rune boundary", "赤い靴ひも", 2, "赤い..."},
		{"empty", "   ", 3, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summarize(tt.in, tt.maxRunes); got != tt.want {
				t.Errorf("Summarize(%q, %d) = %q, want %q", tt.in, tt.maxRunes, got, tt.want)
			}
		})
	}
}
