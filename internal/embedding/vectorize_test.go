package embedding

import (
	"context"
	"testing"

	"github.com/hyperjump/hyoka/internal/models"
)

func TestVectorize_DeduplicatesTexts(t *testing.T) {
	mock := NewMockEmbedder(8)
	texts := []string{"red shoe", "laces", "red shoe", "red shoe", "laces"}
	out, err := Vectorize(context.Background(), mock, texts, 1)
	if err != nil {
		t.Fatal(err)
	}
	if mock.Calls() != 2 {
		t.Errorf("expected 2 distinct encodings, got %d", mock.Calls())
	}
	if len(out) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(out), len(texts))
	}
	if &out[0][0] != &out[2][0] {
		t.Error("duplicate texts should share one vector")
	}
	if out[0][0] == out[1][0] && out[0][1] == out[1][1] {
		t.Error("distinct texts should differ")
	}
}

func TestVectorizeRows(t *testing.T) {
	rows := []models.Row{
		{QueryID: "q1", Query: "shoe", ProductID: "p1", ProductTitle: "Red Shoe"},
		{QueryID: "q1", Query: "shoe", ProductID: "p2", ProductTitle: "Blue Shoe"},
	}
	out, err := VectorizeRows(context.Background(), NewMockEmbedder(4), rows, 0)
	if err != nil {
		t.Fatal(err)
	}
	if rows[0].QueryVector != nil {
		t.Error("input rows should not be modified")
	}
	if len(out[0].QueryVector) != 4 || len(out[1].TitleVector) != 4 {
		t.Errorf("vectors not filled: %+v", out)
	}
}
