// Package metrics computes ranking quality over judged (query, document) rows.
//
// All rankings sort by score descending with a stable sort, so rows with equal scores
// keep their input order. No secondary key is ever used.
package metrics

import (
	"math"
	"sort"

	"github.com/hyperjump/hyoka/internal/evalerr"
	"github.com/hyperjump/hyoka/internal/models"
)

// QueryScore is one query's metric value.
type QueryScore struct {
	QueryID    string  `json:"query_id"`
	Candidates int     `json:"candidates"`
	Value      float64 `json:"value"`
}

// NDCG returns nDCG@k averaged over the queries present in judgments.
// k <= 0 means the full candidate list. Every query counts once regardless of
// how many candidates it has.
func NDCG(judgments []models.Judgment, k int) (float64, error) {
	perQuery, err := NDCGByQuery(judgments, k)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, q := range perQuery {
		total += q.Value
	}
	return total / float64(len(perQuery)), nil
}

// NDCGByQuery returns nDCG@k for each query in order of first appearance.
func NDCGByQuery(judgments []models.Judgment, k int) ([]QueryScore, error) {
	if len(judgments) == 0 {
		return nil, evalerr.Insufficient("judged rows", 0, 1)
	}
	order, groups := groupByQuery(judgments)
	out := make([]QueryScore, 0, len(order))
	for _, id := range order {
		rows := groups[id]
		gains := make([]float64, len(rows))
		scores := make([]float64, len(rows))
		for i, j := range rows {
			gains[i] = judgments[j].Label.Gain()
			scores[i] = judgments[j].Score
		}
		v, err := QueryNDCG(gains, scores, k)
		if err != nil {
			return nil, err
		}
		out = append(out, QueryScore{QueryID: id, Candidates: len(rows), Value: v})
	}
	return out, nil
}

// QueryNDCG computes nDCG@k for one query's candidates. A query whose ideal DCG is
// zero (no relevant candidate) scores 0.
func QueryNDCG(gains, scores []float64, k int) (float64, error) {
	if len(gains) == 0 {
		return 0, evalerr.Insufficient("query candidates", 0, 1)
	}
	if len(gains) != len(scores) {
		return 0, evalerr.Invalid("scores", "have %d scores for %d gains", len(scores), len(gains))
	}
	if k <= 0 || k > len(gains) {
		k = len(gains)
	}

	ranked := RankDescending(scores)
	var dcg float64
	for i := 0; i < k; i++ {
		dcg += gains[ranked[i]] * discount(i)
	}

	ideal := append([]float64(nil), gains...)
	sort.SliceStable(ideal, func(a, b int) bool { return ideal[a] > ideal[b] })
	var idcg float64
	for i := 0; i < k; i++ {
		idcg += ideal[i] * discount(i)
	}
	if idcg == 0 {
		return 0, nil
	}
	return dcg / idcg, nil
}

// discount for the 0-based position i, i.e. 1/log2(rank+1) with rank = i+1.
func discount(i int) float64 {
	return 1 / math.Log2(float64(i)+2)
}

// RankDescending returns row indices ordered by score, highest first, ties in input order.
func RankDescending(scores []float64) []int {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })
	return idx
}

func groupByQuery(judgments []models.Judgment) ([]string, map[string][]int) {
	var order []string
	groups := make(map[string][]int)
	for i, j := range judgments {
		if _, ok := groups[j.QueryID]; !ok {
			order = append(order, j.QueryID)
		}
		groups[j.QueryID] = append(groups[j.QueryID], i)
	}
	return order, groups
}
