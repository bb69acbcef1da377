// Package embedding encodes text to vectors. Model invocation stays behind the
// Embedder interface; this package adds caching and deduplicated batch encoding.
package embedding

import "context"

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
