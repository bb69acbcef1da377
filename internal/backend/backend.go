// Package backend talks to an OpenSearch-compatible search service over its REST API
// and shapes documents and queries for each indexing strategy.
package backend

import (
	"context"
)

// Backend is the subset of search service operations an evaluation run needs.
// Implementations must be safe for concurrent use.
type Backend interface {
	IndexExists(ctx context.Context, index string) (bool, error)
	DeleteIndex(ctx context.Context, index string) error
	CreateIndex(ctx context.Context, index string, options map[string]any) error
	Bulk(ctx context.Context, index string, docs []BulkDocument) error
	Refresh(ctx context.Context, index string) error
	Search(ctx context.Context, index string, body map[string]any) (*SearchResponse, error)
}

// BulkDocument is one document of a bulk upsert.
type BulkDocument struct {
	ID   string
	Body map[string]any
}

// SearchResponse is the part of a search reply the evaluation reads.
type SearchResponse struct {
	Took int `json:"took"`
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []SearchHit `json:"hits"`
	} `json:"hits"`
}

// SearchHit is one returned document.
type SearchHit struct {
	ID     string         `json:"_id"`
	Score  float64        `json:"_score"`
	Source map[string]any `json:"_source,omitempty"`
}

// VectorField is the mapped field holding document vectors.
const VectorField = "title_vector"

// SearchBody wraps a formatted query with the request options every search uses:
// exact total hit counts, the result size, and no vector in returned sources.
func SearchBody(size int, query map[string]any) map[string]any {
	return map[string]any{
		"track_total_hits": true,
		"size":             size,
		"query":            query,
		"_source":          map[string]any{"exclude": VectorField},
	}
}
