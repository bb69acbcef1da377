package keyword

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
)

func indexSample(t *testing.T, idx *BleveIndex) {
	t.Helper()
	docs := []TermDocument{
		{ID: "p1", Fields: map[string][]string{"title_hash": {"01101001"}, "title_centroids": {"3", "7"}}},
		{ID: "p2", Fields: map[string][]string{"title_hash": {"01101001"}, "title_centroids": {"7", "12"}}},
		{ID: "p3", Fields: map[string][]string{"title_hash": {"11110000"}, "title_centroids": {"1", "2"}}},
	}
	if err := idx.Index(context.Background(), docs); err != nil {
		t.Fatalf("Index: %v", err)
	}
}

func TestBleveIndex_MatchHash(t *testing.T) {
	idx, err := NewBleveIndex("")
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	defer func() {
		_ = idx.Close()
	}()
	indexSample(t, idx)

	got, err := idx.Match(context.Background(), "title_hash", []string{"01101001"})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if want := []string{"p1", "p2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Match = %v, want %v", got, want)
	}

	// A prefix of a hash is a different term.
	got, err = idx.Match(context.Background(), "title_hash", []string{"0110"})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("prefix matched %v", got)
	}
}

func TestBleveIndex_MatchAnyCentroid(t *testing.T) {
	idx, err := NewBleveIndex("")
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	defer func() {
		_ = idx.Close()
	}()
	indexSample(t, idx)

	tests := []struct {
		values []string
		want   []string
	}{
		{[]string{"7"}, []string{"p1", "p2"}},
		{[]string{"3", "2"}, []string{"p1", "p3"}},
		{[]string{"99"}, []string{}},
		{nil, nil},
	}
	for _, tt := range tests {
		got, err := idx.Match(context.Background(), "title_centroids", tt.values)
		if err != nil {
			t.Fatalf("Match(%v): %v", tt.values, err)
		}
		if len(got) != len(tt.want) {
			t.Errorf("Match(%v) = %v, want %v", tt.values, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Match(%v) = %v, want %v", tt.values, got, tt.want)
				break
			}
		}
	}
}

func TestBleveIndex_ReindexReplacesTerms(t *testing.T) {
	idx, err := NewBleveIndex("")
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	defer func() {
		_ = idx.Close()
	}()
	indexSample(t, idx)
	ctx := context.Background()

	if err := idx.Index(ctx, []TermDocument{{ID: "p1", Fields: map[string][]string{"title_hash": {"00000000"}}}}); err != nil {
		t.Fatalf("Index: %v", err)
	}
	got, _ := idx.Match(ctx, "title_hash", []string{"01101001"})
	if !reflect.DeepEqual(got, []string{"p2"}) {
		t.Errorf("after reindex Match = %v, want [p2]", got)
	}
	if n, _ := idx.DocCount(); n != 3 {
		t.Errorf("DocCount = %d, want 3", n)
	}
}

func TestBleveIndex_Delete(t *testing.T) {
	idx, err := NewBleveIndex("")
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	defer func() {
		_ = idx.Close()
	}()
	indexSample(t, idx)
	ctx := context.Background()

	if err := idx.Delete(ctx, "p2"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, _ := idx.Match(ctx, "title_centroids", []string{"7"})
	if !reflect.DeepEqual(got, []string{"p1"}) {
		t.Errorf("after delete Match = %v, want [p1]", got)
	}
}

func TestBleveIndex_OpenExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terms")
	ctx := context.Background()

	idx1, err := NewBleveIndex(path)
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	indexSample(t, idx1)
	if err := idx1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	idx2, err := NewBleveIndex(path)
	if err != nil {
		t.Fatalf("NewBleveIndex (open existing): %v", err)
	}
	defer func() {
		_ = idx2.Close()
	}()
	got, err := idx2.Match(ctx, "title_hash", []string{"11110000"})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"p3"}) {
		t.Errorf("reopened Match = %v, want [p3]", got)
	}
}
