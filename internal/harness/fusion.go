package harness

import (
	"fmt"

	"github.com/hyperjump/hyoka/internal/evalerr"
	"github.com/hyperjump/hyoka/internal/metrics"
	"github.com/hyperjump/hyoka/internal/models"
	"github.com/hyperjump/hyoka/pkg/utils"
)

// EvaluateFusion scores each row set pairwise by cosine, fuses the two score
// columns with reciprocal rank fusion, and returns the results for a, b and the
// fused ranking in that order. a and b must list the same (query, product) pairs
// in the same order.
func (h *Harness) EvaluateFusion(a, b []models.Row, k int) ([]*Result, error) {
	if len(a) == 0 {
		return nil, evalerr.Insufficient("labelled rows", 0, 1)
	}
	if len(a) != len(b) {
		return nil, evalerr.DimensionMismatch("fused row count", len(a), len(b))
	}
	for i := range a {
		if a[i].QueryID != b[i].QueryID || a[i].ProductID != b[i].ProductID {
			return nil, evalerr.Invalid(fmt.Sprintf("row %d", i), "pairs differ: (%s, %s) vs (%s, %s)",
				a[i].QueryID, a[i].ProductID, b[i].QueryID, b[i].ProductID)
		}
	}

	scoresA, err := cosineColumn(a)
	if err != nil {
		return nil, err
	}
	scoresB, err := cosineColumn(b)
	if err != nil {
		return nil, err
	}
	queryIDs := make([]string, len(a))
	for i := range a {
		queryIDs[i] = a[i].QueryID
	}
	fused, err := metrics.FuseScores(queryIDs, scoresA, scoresB)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, 0, 3)
	for _, c := range []struct {
		name   string
		scores []float64
	}{{"a", scoresA}, {"b", scoresB}, {"rrf", fused}} {
		res, err := h.scoreJudgments(c.name, judgeRows(a, c.scores), k)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func cosineColumn(rows []models.Row) ([]float64, error) {
	out := make([]float64, len(rows))
	for i := range rows {
		r := &rows[i]
		if len(r.QueryVector) != len(r.TitleVector) {
			return nil, evalerr.DimensionMismatch(fmt.Sprintf("title_vector of row %d", i), len(r.QueryVector), len(r.TitleVector))
		}
		out[i] = utils.Cosine(r.QueryVector, r.TitleVector)
	}
	return out, nil
}

func judgeRows(rows []models.Row, scores []float64) []models.Judgment {
	judged := make([]models.Judgment, len(rows))
	for i := range rows {
		judged[i] = models.Judgment{
			QueryID:    rows[i].QueryID,
			DocumentID: rows[i].ProductID,
			Label:      rows[i].Label,
			Score:      scores[i],
		}
	}
	return judged
}
