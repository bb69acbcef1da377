package models

import "time"

// NullDocumentID marks an assembled hit whose index position was the "no result" sentinel.
const NullDocumentID = ""

// Judgment is one scored (query, document) pair ready for ranking metrics.
type Judgment struct {
	QueryID    string  `json:"query_id"`
	DocumentID string  `json:"product_id"`
	Label      Label   `json:"esci_label"`
	Score      float64 `json:"score"`
}

// QueryOutcome is what the backend reported for one query.
// Took is the server-side time the backend reported; Latency is the round trip seen by the client.
type QueryOutcome struct {
	QueryID   string           `json:"query_id"`
	Took      time.Duration    `json:"took"`
	Latency   time.Duration    `json:"latency"`
	Hits      int              `json:"hits"`
	Documents []ScoredDocument `json:"-"`
	Err       error            `json:"-"`
}

// ScoredDocument is one returned hit, in rank order within its outcome.
type ScoredDocument struct {
	DocumentID string  `json:"product_id"`
	Score      float64 `json:"score"`
}

// Failed reports whether the query did not complete.
func (o *QueryOutcome) Failed() bool {
	return o.Err != nil
}
