package embedding

import (
	"context"
	"testing"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float32{4, 5})
	c.Set("c", []float32{6}) // evicts a
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be evicted")
	}
	if _, ok := c.Get("b"); !ok {
		t.Error("expected b to remain")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to be present")
	}
}

func TestCachedEmbedder_ReusesVectors(t *testing.T) {
	ctx := context.Background()
	mock := NewMockEmbedder(4)
	c := NewCachedEmbedder(mock, 10)

	first, err := c.EmbedBatch(ctx, []string{"shoe", "lace"})
	if err != nil {
		t.Fatal(err)
	}
	again, err := c.EmbedBatch(ctx, []string{"lace", "shoe", "sock"})
	if err != nil {
		t.Fatal(err)
	}
	if mock.Calls() != 3 {
		t.Errorf("expected 3 embed calls, got %d", mock.Calls())
	}
	if again[1][0] != first[0][0] {
		t.Error("cached vector differs from original")
	}
	if _, err := c.Embed(ctx, "sock"); err != nil || mock.Calls() != 3 {
		t.Errorf("Embed should hit the cache: calls=%d err=%v", mock.Calls(), err)
	}
	stats := c.Stats()
	if stats.Hits != 3 || stats.Misses != 3 || stats.Entries != 3 {
		t.Errorf("stats = %+v, want 3 hits, 3 misses, 3 entries", stats)
	}
}
