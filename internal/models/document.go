// Package models defines labelled rows, relevance labels, and evaluation outcomes.
package models

// Split tags used to pick calibration data.
const (
	SplitTrain = "train"
	SplitTest  = "test"
)

// Row is one labelled (query, product) pair as produced by the vectorize stage.
// Hash and centroid columns are only present after the matching transform ran.
type Row struct {
	QueryID        string    `json:"query_id"`
	Query          string    `json:"query"`
	ProductID      string    `json:"product_id"`
	ProductTitle   string    `json:"product_title"`
	Label          Label     `json:"esci_label"`
	Split          string    `json:"split"`
	QueryVector    []float32 `json:"query_vector,omitempty"`
	TitleVector    []float32 `json:"title_vector,omitempty"`
	QueryHash      string    `json:"query_hash,omitempty"`
	TitleHash      string    `json:"title_hash,omitempty"`
	QueryCentroids []int     `json:"query_centroids,omitempty"`
	TitleCentroids []int     `json:"title_centroids,omitempty"`
}

// Document is the document-side projection of a row.
type Document struct {
	ID        string
	Title     string
	Vector    []float32
	Hash      string
	Centroids []int
	Split     string
}

// Document projects the product columns of r.
func (r *Row) Document() Document {
	return Document{
		ID:        r.ProductID,
		Title:     r.ProductTitle,
		Vector:    r.TitleVector,
		Hash:      r.TitleHash,
		Centroids: r.TitleCentroids,
		Split:     r.Split,
	}
}
