package assembly

import (
	"errors"
	"testing"

	"github.com/hyperjump/hyoka/internal/evalerr"
	"github.com/hyperjump/hyoka/internal/metrics"
	"github.com/hyperjump/hyoka/internal/models"
)

func TestAssembleHits_SentinelRanksLast(t *testing.T) {
	hits, err := AssembleHits(3,
		[]string{"q1"},
		[]string{"d0", "d1"},
		[][]float32{{0.2, -0.9, 0}},
		[][]int64{{1, 0, -1}},
	)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 3 {
		t.Fatalf("expected 3 hits, got %d", len(hits))
	}
	if hits[0].DocumentID != "d1" || hits[1].DocumentID != "d0" {
		t.Errorf("positions not mapped through insertion order: %+v", hits)
	}
	sentinel := hits[2]
	if sentinel.DocumentID != models.NullDocumentID || sentinel.Score != SentinelScore {
		t.Fatalf("unexpected sentinel row %+v", sentinel)
	}
	for _, h := range hits[:2] {
		if sentinel.Score >= h.Score {
			t.Errorf("sentinel score %v not below real score %v", sentinel.Score, h.Score)
		}
	}
}

func TestAssembleHits_ShapeErrors(t *testing.T) {
	tests := []struct {
		name      string
		scores    [][]float32
		positions [][]int64
	}{
		{"missing score row", nil, [][]int64{{0}}},
		{"short positions row", [][]float32{{1}}, [][]int64{{}}},
		{"position out of range", [][]float32{{1}}, [][]int64{{5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AssembleHits(1, []string{"q"}, []string{"d"}, tt.scores, tt.positions)
			if !errors.Is(err, evalerr.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestOuterJoin_Order(t *testing.T) {
	labels := []LabeledPair{
		{QueryID: "q1", DocumentID: "a", Label: models.LabelExact},
		{QueryID: "q1", DocumentID: "b", Label: models.LabelSubstitute},
	}
	hits := []Hit{
		{QueryID: "q1", DocumentID: "c", Score: 0.9},
		{QueryID: "q1", DocumentID: "a", Score: 0.5},
	}
	got := OuterJoin(labels, hits)
	want := []models.Judgment{
		{QueryID: "q1", DocumentID: "a", Label: models.LabelExact, Score: 0.5},
		{QueryID: "q1", DocumentID: "b", Label: models.LabelSubstitute, Score: MissingScore},
		{QueryID: "q1", DocumentID: "c", Label: models.LabelIrrelevant, Score: 0.9},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestOuterJoin_MissedRelevantDocumentLowersNDCG(t *testing.T) {
	labels := []LabeledPair{
		{QueryID: "q1", DocumentID: "a", Label: models.LabelExact},
		{QueryID: "q1", DocumentID: "b", Label: models.LabelExact},
		{QueryID: "q1", DocumentID: "c", Label: models.LabelIrrelevant},
	}
	found := []Hit{
		{QueryID: "q1", DocumentID: "a", Score: 0.9},
		{QueryID: "q1", DocumentID: "b", Score: 0.8},
		{QueryID: "q1", DocumentID: "c", Score: 0.1},
	}
	missed := []Hit{
		{QueryID: "q1", DocumentID: "a", Score: 0.9},
		{QueryID: "q1", DocumentID: "c", Score: 0.1},
		{QueryID: "q1", DocumentID: models.NullDocumentID, Score: SentinelScore},
	}

	full, err := metrics.NDCG(OuterJoin(labels, found), 3)
	if err != nil {
		t.Fatal(err)
	}
	partial, err := metrics.NDCG(OuterJoin(labels, missed), 3)
	if err != nil {
		t.Fatal(err)
	}
	if full != 1 {
		t.Errorf("complete run should be perfect, got %v", full)
	}
	if partial >= full {
		t.Errorf("missing a relevant document should lower nDCG: %v >= %v", partial, full)
	}
}

func TestPipeline_TwoOfThreeWithSentinel(t *testing.T) {
	docs := []string{"a", "b", "c", "x"}
	labels := []LabeledPair{
		{QueryID: "q", DocumentID: "a", Label: models.LabelExact},
		{QueryID: "q", DocumentID: "b", Label: models.LabelExact},
		{QueryID: "q", DocumentID: "c", Label: models.LabelExact},
	}
	hits, err := AssembleHits(3, []string{"q"}, docs,
		[][]float32{{0.9, 0.7, 0}},
		[][]int64{{0, 1, -1}},
	)
	if err != nil {
		t.Fatal(err)
	}
	judged := OuterJoin(labels, hits)
	got, err := metrics.NDCG(judged, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got >= 1 {
		t.Errorf("expected nDCG below 1, got %v", got)
	}
	for _, j := range judged {
		if j.DocumentID == models.NullDocumentID {
			for _, other := range judged {
				if other.DocumentID != models.NullDocumentID && other.Score != MissingScore && j.Score > other.Score {
					t.Errorf("sentinel row outranks %+v", other)
				}
			}
		}
	}
}

func TestLabeledPairs(t *testing.T) {
	pairs := LabeledPairs([]models.Row{{QueryID: "q", ProductID: "p", Label: models.LabelComplement}})
	if len(pairs) != 1 || pairs[0].DocumentID != "p" || pairs[0].Label != models.LabelComplement {
		t.Errorf("unexpected pairs %+v", pairs)
	}
}
