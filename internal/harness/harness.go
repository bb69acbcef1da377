// Package harness evaluates retrieval quality of in-process ANN indexes and of
// precomputed vector pairs with one build, search, assemble, score protocol.
package harness

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/hyoka/internal/assembly"
	"github.com/hyperjump/hyoka/internal/dataset"
	"github.com/hyperjump/hyoka/internal/evalerr"
	"github.com/hyperjump/hyoka/internal/metrics"
	"github.com/hyperjump/hyoka/internal/models"
	"github.com/hyperjump/hyoka/internal/vector"
	"github.com/hyperjump/hyoka/pkg/utils"
)

// Harness runs evaluations. It holds no state between runs.
type Harness struct {
	logger *zap.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// New creates a Harness.
func New(opts ...Option) *Harness {
	h := &Harness{}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = utils.OrNop(h.logger)
	return h
}

// Result is the outcome of one evaluation.
type Result struct {
	Name       string               `json:"name"`
	K          int                  `json:"k"`
	MeanNDCG   float64              `json:"mean_ndcg"`
	SearchTook time.Duration        `json:"search_took"`
	Queries    int                  `json:"queries"`
	Documents  int                  `json:"documents"`
	PerQuery   []metrics.QueryScore `json:"per_query,omitempty"`
}

// Train fits idx on the title vectors of the train split when the family needs it.
// Indexes that are already trained, or need no training, are left untouched.
func (h *Harness) Train(ctx context.Context, idx vector.Index, rows []models.Row) error {
	trainer, ok := idx.(vector.Trainer)
	if !ok || trainer.IsTrained() {
		return nil
	}
	_, docs := dataset.Split(dataset.FilterSplit(rows, models.SplitTrain))
	if len(docs) == 0 {
		return evalerr.Insufficient("train split documents", 0, 1)
	}
	h.logger.Debug("Training index", zap.String("family", string(idx.Family())), zap.Int("vectors", len(docs)))
	if err := trainer.Train(ctx, dataset.TitleVectors(docs)); err != nil {
		return fmt.Errorf("train %s index: %w", idx.Family(), err)
	}
	return nil
}

// Evaluate adds every document of rows to idx in first-appearance order, searches
// every query for k hits, and scores the joined result with nDCG@k.
//
// idx must be empty, since positions are read as offsets into the document set.
// returnsDistance negates scores so that higher always means closer. The search
// time is set on the returned Result even when the search fails.
func (h *Harness) Evaluate(ctx context.Context, idx vector.Index, rows []models.Row, k int, returnsDistance bool) (*Result, error) {
	if k <= 0 {
		return nil, evalerr.Invalid("k", "must be positive, got %d", k)
	}
	queries, docs := dataset.Split(rows)
	if len(queries) == 0 {
		return nil, evalerr.Insufficient("queries", 0, 1)
	}
	dim, err := dataset.Dimension(rows)
	if err != nil {
		return nil, err
	}
	if dim != idx.Dimensions() {
		return nil, evalerr.DimensionMismatch("index", dim, idx.Dimensions())
	}
	if n := idx.Size(); n != 0 {
		return nil, evalerr.Invalid("index", "must be empty, holds %d vectors", n)
	}

	if err := idx.Add(ctx, dataset.TitleVectors(docs)); err != nil {
		return nil, fmt.Errorf("add documents: %w", err)
	}

	started := time.Now()
	scores, positions, err := idx.Search(ctx, dataset.QueryVectors(queries), k)
	took := time.Since(started)
	result := &Result{
		Name:       string(idx.Family()),
		K:          k,
		SearchTook: took,
		Queries:    len(queries),
		Documents:  len(docs),
	}
	if err != nil {
		h.logger.Error("Search failed", zap.String("family", result.Name), zap.Duration("took", took), zap.Error(err))
		return result, fmt.Errorf("search: %w", err)
	}

	if returnsDistance {
		for _, row := range scores {
			for j := range row {
				row[j] = -row[j]
			}
		}
	}

	hits, err := assembly.AssembleHits(k, dataset.QueryIDs(queries), dataset.DocumentIDs(docs), scores, positions)
	if err != nil {
		return result, err
	}
	judged := assembly.OuterJoin(assembly.LabeledPairs(rows), hits)
	perQuery, err := metrics.NDCGByQuery(judged, k)
	if err != nil {
		return result, err
	}
	result.PerQuery = perQuery
	result.MeanNDCG = mean(perQuery)

	h.logger.Info("Evaluation finished",
		zap.String("family", result.Name),
		zap.Int("queries", result.Queries),
		zap.Int("documents", result.Documents),
		zap.Duration("search_took", took),
		zap.Float64("mean_ndcg", result.MeanNDCG))
	return result, nil
}

// EvaluateOutcomes scores the hits a search backend returned for each query against
// the labels in rows. Failed outcomes contribute no hits, so their labelled pairs
// score as missed. SearchTook is the sum of the server-reported times.
func (h *Harness) EvaluateOutcomes(name string, rows []models.Row, outcomes []models.QueryOutcome, k int) (*Result, error) {
	if k <= 0 {
		return nil, evalerr.Invalid("k", "must be positive, got %d", k)
	}
	if len(outcomes) == 0 {
		return nil, evalerr.Insufficient("query outcomes", 0, 1)
	}
	var hits []assembly.Hit
	var took time.Duration
	for _, o := range outcomes {
		took += o.Took
		for _, d := range o.Documents {
			hits = append(hits, assembly.Hit{QueryID: o.QueryID, DocumentID: d.DocumentID, Score: d.Score})
		}
	}
	judged := assembly.OuterJoin(assembly.LabeledPairs(rows), hits)
	result, err := h.scoreJudgments(name, judged, k)
	if err != nil {
		return nil, err
	}
	_, docs := dataset.Split(rows)
	result.Documents = len(docs)
	result.SearchTook = took
	return result, nil
}

// EvaluatePairwise scores every labelled row by cosine(query_vector, title_vector)
// and reports nDCG@k over the rows as given.
func (h *Harness) EvaluatePairwise(rows []models.Row, k int) (*Result, error) {
	if len(rows) == 0 {
		return nil, evalerr.Insufficient("labelled rows", 0, 1)
	}
	scores, err := cosineColumn(rows)
	if err != nil {
		return nil, err
	}
	return h.scoreJudgments("pairwise", judgeRows(rows, scores), k)
}

// EvaluateJudgments scores already-joined rows, for scores produced elsewhere such as fusion.
func (h *Harness) EvaluateJudgments(name string, judged []models.Judgment, k int) (*Result, error) {
	return h.scoreJudgments(name, judged, k)
}

func (h *Harness) scoreJudgments(name string, judged []models.Judgment, k int) (*Result, error) {
	perQuery, err := metrics.NDCGByQuery(judged, k)
	if err != nil {
		return nil, err
	}
	docs := make(map[string]struct{})
	for _, j := range judged {
		docs[j.DocumentID] = struct{}{}
	}
	result := &Result{
		Name:      name,
		K:         k,
		MeanNDCG:  mean(perQuery),
		Queries:   len(perQuery),
		Documents: len(docs),
		PerQuery:  perQuery,
	}
	h.logger.Info("Evaluation finished",
		zap.String("name", name),
		zap.Int("queries", result.Queries),
		zap.Float64("mean_ndcg", result.MeanNDCG))
	return result, nil
}

func mean(scores []metrics.QueryScore) float64 {
	if len(scores) == 0 {
		return 0
	}
	var total float64
	for _, s := range scores {
		total += s.Value
	}
	return total / float64(len(scores))
}
