package keyword

import (
	"reflect"
	"testing"
)

func TestAnalyzer_Tokens(t *testing.T) {
	a, err := NewAnalyzer()
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	got := a.Tokens("Red SHOE, red laces")
	want := []string{"red", "shoe", "red", "laces"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokens() = %v, want %v", got, want)
	}
	if got := a.Tokens("  "); len(got) != 0 {
		t.Errorf("Tokens(blank) = %v, want none", got)
	}
}

func TestAnalyzer_Features(t *testing.T) {
	a, err := NewAnalyzer()
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	tests := []struct {
		name  string
		query string
		title string
		want  Features
	}{
		{"repeated title terms count each time", "red shoe", "Red shoe red laces", Features{TitleTF: 3, QueryLen: 2, TitleLen: 4}},
		{"repeated query terms weigh more", "red red", "red hat", Features{TitleTF: 2, QueryLen: 2, TitleLen: 2}},
		{"no overlap", "blue", "green sock", Features{TitleTF: 0, QueryLen: 1, TitleLen: 2}},
		{"empty query", "", "green sock", Features{TitleLen: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Features(tt.query, tt.title); got != tt.want {
				t.Errorf("Features(%q, %q) = %+v, want %+v", tt.query, tt.title, got, tt.want)
			}
		})
	}
}
