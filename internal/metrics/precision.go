package metrics

import "github.com/hyperjump/hyoka/internal/evalerr"

// PrecisionAtK returns the fraction of the first k ranked items whose label equals expected.
// The denominator is always k, so short lists are penalised.
func PrecisionAtK[T comparable](ranked []T, expected T, k int) (float64, error) {
	if k <= 0 {
		return 0, evalerr.Invalid("k", "must be positive, got %d", k)
	}
	n := k
	if n > len(ranked) {
		n = len(ranked)
	}
	hits := 0
	for _, label := range ranked[:n] {
		if label == expected {
			hits++
		}
	}
	return float64(hits) / float64(k), nil
}

// PrecisionAtKByScore ranks labels by score (descending, first occurrence wins ties)
// and applies PrecisionAtK.
func PrecisionAtKByScore[T comparable](labels []T, scores []float64, expected T, k int) (float64, error) {
	if len(labels) != len(scores) {
		return 0, evalerr.Invalid("scores", "have %d scores for %d items", len(scores), len(labels))
	}
	order := RankDescending(scores)
	ranked := make([]T, len(order))
	for i, idx := range order {
		ranked[i] = labels[idx]
	}
	return PrecisionAtK(ranked, expected, k)
}
