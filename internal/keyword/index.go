// Package keyword indexes exact-match terms (hash codes, centroid ids) per document
// and answers which documents carry any of a set of terms. It also derives lexical
// match features between query and title text.
package keyword

import "context"

// TermIndex defines exact term filtering over document fields.
type TermIndex interface {
	// Index stores or replaces the terms of a batch of documents.
	Index(ctx context.Context, docs []TermDocument) error
	// Match returns the ids of documents whose field holds any of values.
	Match(ctx context.Context, field string, values []string) ([]string, error)
	Delete(ctx context.Context, id string) error
	Close() error
	// DocCount returns the total number of documents in the index.
	DocCount() (uint64, error)
}

// TermDocument is one document's filterable fields. Each field may carry several terms.
type TermDocument struct {
	ID     string
	Fields map[string][]string
}
