package backend

import "github.com/hyperjump/hyoka/internal/models"

// Formatter builds request bodies for one indexing strategy.
type Formatter interface {
	FormatDocument(doc models.Document) map[string]any
	FormatQuery(query models.Query) map[string]any
}

func documentBody(doc models.Document) map[string]any {
	return map[string]any{
		"product_title": doc.Title,
		VectorField:     doc.Vector,
	}
}

// knnScore rescores the documents matched by filter with the inner product against vector.
func knnScore(filter map[string]any, vector []float32) map[string]any {
	return map[string]any{
		"script_score": map[string]any{
			"query": filter,
			"script": map[string]any{
				"source": "knn_score",
				"lang":   "knn",
				"params": map[string]any{
					"field":       VectorField,
					"query_value": vector,
					"space_type":  "innerproduct",
				},
			},
		},
	}
}

// VectorFormatter scores every document by exact inner product.
type VectorFormatter struct{}

// FormatDocument returns the title and vector.
func (VectorFormatter) FormatDocument(doc models.Document) map[string]any {
	return documentBody(doc)
}

// FormatQuery scores all documents.
func (VectorFormatter) FormatQuery(q models.Query) map[string]any {
	return knnScore(map[string]any{"match_all": map[string]any{}}, q.Vector)
}

// HashFormatter only scores documents whose title hash equals the query hash.
type HashFormatter struct{}

// FormatDocument adds title_hash.
func (HashFormatter) FormatDocument(doc models.Document) map[string]any {
	body := documentBody(doc)
	body["title_hash"] = doc.Hash
	return body
}

// FormatQuery filters on title_hash.
func (HashFormatter) FormatQuery(q models.Query) map[string]any {
	filter := map[string]any{
		"bool": map[string]any{
			"must": map[string]any{
				"match": map[string]any{"title_hash": q.Hash},
			},
		},
	}
	return knnScore(filter, q.Vector)
}

// CentroidFormatter only scores documents sharing at least one centroid with the query.
type CentroidFormatter struct{}

// FormatDocument adds title_centroids.
func (CentroidFormatter) FormatDocument(doc models.Document) map[string]any {
	body := documentBody(doc)
	body["title_centroids"] = doc.Centroids
	return body
}

// FormatQuery matches any of the query centroids.
func (CentroidFormatter) FormatQuery(q models.Query) map[string]any {
	should := make([]any, len(q.Centroids))
	for i, c := range q.Centroids {
		should[i] = map[string]any{"match": map[string]any{"title_centroids": c}}
	}
	return knnScore(map[string]any{"bool": map[string]any{"should": should}}, q.Vector)
}

// KNNFormatter uses the engine's native approximate k-NN query.
type KNNFormatter struct {
	K int
}

// FormatDocument returns the title and vector.
func (KNNFormatter) FormatDocument(doc models.Document) map[string]any {
	return documentBody(doc)
}

// FormatQuery asks for the K nearest vectors.
func (f KNNFormatter) FormatQuery(q models.Query) map[string]any {
	return map[string]any{
		"knn": map[string]any{
			VectorField: map[string]any{
				"vector": q.Vector,
				"k":      f.K,
			},
		},
	}
}
