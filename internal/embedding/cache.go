package embedding

import (
	"container/list"
	"context"
	"sync"
)

// EmbeddingCache keeps the most recently used embeddings, keyed by text.
type EmbeddingCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front is most recent; values are *cached
	byText   map[string]*list.Element
	hits     int64
	misses   int64
}

type cached struct {
	text   string
	vector []float32
}

// CacheStats counts lookups since the cache was created.
type CacheStats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// NewEmbeddingCache returns a cache holding at most capacity embeddings.
// A capacity below 1 is treated as 1.
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	return &EmbeddingCache{
		capacity: max(capacity, 1),
		order:    list.New(),
		byText:   make(map[string]*list.Element),
	}
}

// Get returns the embedding for text and marks it most recently used.
func (c *EmbeddingCache) Get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.byText[text]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return el.Value.(*cached).vector, true
}

// Set stores vector for text, dropping the least recently used entry when full.
func (c *EmbeddingCache) Set(text string, vector []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.byText[text]; ok {
		el.Value.(*cached).vector = vector
		c.order.MoveToFront(el)
		return
	}
	c.byText[text] = c.order.PushFront(&cached{text: text, vector: vector})
	for c.order.Len() > c.capacity {
		last := c.order.Back()
		c.order.Remove(last)
		delete(c.byText, last.Value.(*cached).text)
	}
}

// Len returns the number of cached entries.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns the lookup counters and current size.
func (c *EmbeddingCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Entries: c.order.Len()}
}

// CachedEmbedder consults an EmbeddingCache before delegating to the wrapped Embedder.
type CachedEmbedder struct {
	Embedder
	cache *EmbeddingCache
}

// NewCachedEmbedder wraps e with an LRU cache of the given capacity.
func NewCachedEmbedder(e Embedder, capacity int) *CachedEmbedder {
	return &CachedEmbedder{Embedder: e, cache: NewEmbeddingCache(capacity)}
}

// Embed returns the cached vector for text or computes and caches it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return v, nil
	}
	v, err := c.Embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, v)
	return v, nil
}

// EmbedBatch embeds only the texts missing from the cache, in one batch.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, t := range texts {
		if v, ok := c.cache.Get(t); ok {
			out[i] = v
			continue
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}
	vectors, err := c.Embedder.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, v := range vectors {
		c.cache.Set(missing[j], v)
		out[missingIdx[j]] = v
	}
	return out, nil
}

// Stats returns the hit and miss counters of the underlying cache.
func (c *CachedEmbedder) Stats() CacheStats {
	return c.cache.Stats()
}
