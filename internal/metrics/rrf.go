package metrics

import "github.com/hyperjump/hyoka/internal/evalerr"

// RRFK is the reciprocal rank fusion smoothing constant.
const RRFK = 60

// ReciprocalRankFusion returns sum(1 / (RRFK + rank)) over the given 1-based ranks.
func ReciprocalRankFusion(ranks ...int) float64 {
	var total float64
	for _, r := range ranks {
		total += 1.0 / float64(RRFK+r)
	}
	return total
}

// RankWithinQueries ranks rows by score descending inside each query group.
// Ranks are 1-based; equal scores are ranked by first occurrence.
func RankWithinQueries(queryIDs []string, scores []float64) ([]int, error) {
	if len(queryIDs) != len(scores) {
		return nil, evalerr.Invalid("scores", "have %d scores for %d rows", len(scores), len(queryIDs))
	}
	order := make(map[string][]int)
	var keys []string
	for i, q := range queryIDs {
		if _, ok := order[q]; !ok {
			keys = append(keys, q)
		}
		order[q] = append(order[q], i)
	}
	ranks := make([]int, len(scores))
	for _, q := range keys {
		rows := order[q]
		local := make([]float64, len(rows))
		for i, r := range rows {
			local[i] = scores[r]
		}
		for rank, i := range RankDescending(local) {
			ranks[rows[i]] = rank + 1
		}
	}
	return ranks, nil
}

// FuseScores ranks every score column within queries and fuses the ranks with RRF.
// The result is a new score column, higher is better.
func FuseScores(queryIDs []string, columns ...[]float64) ([]float64, error) {
	if len(columns) == 0 {
		return nil, evalerr.Insufficient("score columns", 0, 1)
	}
	rankColumns := make([][]int, len(columns))
	for c, col := range columns {
		ranks, err := RankWithinQueries(queryIDs, col)
		if err != nil {
			return nil, err
		}
		rankColumns[c] = ranks
	}
	fused := make([]float64, len(queryIDs))
	ranks := make([]int, len(columns))
	for i := range fused {
		for c := range rankColumns {
			ranks[c] = rankColumns[c][i]
		}
		fused[i] = ReciprocalRankFusion(ranks...)
	}
	return fused, nil
}
