// Package assembly turns raw ANN output into judged rows ready for ranking metrics.
package assembly

import (
	"github.com/hyperjump/hyoka/internal/evalerr"
	"github.com/hyperjump/hyoka/internal/models"
)

const (
	// SentinelScore is assigned to "no result" positions. It is below any real
	// similarity an index can return.
	SentinelScore = -1e10
	// MissingScore is assigned to labelled pairs the index never returned.
	MissingScore = -2e10
)

// Hit is one (query, document, score) row reported by an index.
type Hit struct {
	QueryID    string
	DocumentID string
	Score      float64
}

// LabeledPair is a ground-truth (query, document, label) row.
type LabeledPair struct {
	QueryID    string
	DocumentID string
	Label      models.Label
}

// LabeledPairs projects labelled dataset rows.
func LabeledPairs(rows []models.Row) []LabeledPair {
	out := make([]LabeledPair, len(rows))
	for i := range rows {
		out[i] = LabeledPair{QueryID: rows[i].QueryID, DocumentID: rows[i].ProductID, Label: rows[i].Label}
	}
	return out
}

// AssembleHits maps the [len(queryIDs)][k] position and score matrices back to
// document ids using the index insertion order in documentIDs. Negative positions
// become NullDocumentID rows with SentinelScore.
func AssembleHits(k int, queryIDs, documentIDs []string, scores [][]float32, positions [][]int64) ([]Hit, error) {
	if len(scores) != len(queryIDs) {
		return nil, evalerr.DimensionMismatch("scores", len(queryIDs), len(scores))
	}
	if len(positions) != len(queryIDs) {
		return nil, evalerr.DimensionMismatch("positions", len(queryIDs), len(positions))
	}

	hits := make([]Hit, 0, len(queryIDs)*k)
	for q, queryID := range queryIDs {
		if len(scores[q]) != k {
			return nil, evalerr.DimensionMismatch("scores row", k, len(scores[q]))
		}
		if len(positions[q]) != k {
			return nil, evalerr.DimensionMismatch("positions row", k, len(positions[q]))
		}
		for j := 0; j < k; j++ {
			pos := positions[q][j]
			if pos < 0 {
				hits = append(hits, Hit{QueryID: queryID, DocumentID: models.NullDocumentID, Score: SentinelScore})
				continue
			}
			if pos >= int64(len(documentIDs)) {
				return nil, evalerr.Invalid("positions", "position %d out of range for %d documents", pos, len(documentIDs))
			}
			hits = append(hits, Hit{QueryID: queryID, DocumentID: documentIDs[pos], Score: float64(scores[q][j])})
		}
	}
	return hits, nil
}

type pairKey struct {
	query    string
	document string
}

// OuterJoin performs a full outer join of labels and hits on (query id, document id).
//
// Labelled pairs come first in label order, one row per matching hit, or a single
// row with MissingScore when the index missed the pair. Hits without a label
// follow in hit order as Irrelevant.
func OuterJoin(labels []LabeledPair, hits []Hit) []models.Judgment {
	byPair := make(map[pairKey][]int, len(hits))
	for i, h := range hits {
		key := pairKey{h.QueryID, h.DocumentID}
		byPair[key] = append(byPair[key], i)
	}

	out := make([]models.Judgment, 0, len(labels)+len(hits))
	matched := make([]bool, len(hits))
	for _, l := range labels {
		label := l.Label
		if label == "" {
			label = models.LabelIrrelevant
		}
		idx, ok := byPair[pairKey{l.QueryID, l.DocumentID}]
		if !ok {
			out = append(out, models.Judgment{QueryID: l.QueryID, DocumentID: l.DocumentID, Label: label, Score: MissingScore})
			continue
		}
		for _, i := range idx {
			matched[i] = true
			out = append(out, models.Judgment{QueryID: l.QueryID, DocumentID: l.DocumentID, Label: label, Score: hits[i].Score})
		}
	}
	for i, h := range hits {
		if matched[i] {
			continue
		}
		out = append(out, models.Judgment{QueryID: h.QueryID, DocumentID: h.DocumentID, Label: models.LabelIrrelevant, Score: h.Score})
	}
	return out
}
