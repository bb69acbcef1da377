package harness

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/hyoka/internal/dataset"
	"github.com/hyperjump/hyoka/internal/evalerr"
	"github.com/hyperjump/hyoka/internal/keyword"
	"github.com/hyperjump/hyoka/internal/metrics"
	"github.com/hyperjump/hyoka/internal/models"
)

// LexicalScorer turns title term counts into a BM25-style relevance score.
type LexicalScorer struct {
	K1          float64
	B           float64
	AvgTitleLen float64
}

// FitLexicalScorer sets the length normalisation from the mean title length of features.
func FitLexicalScorer(features []keyword.Features) (*LexicalScorer, error) {
	if len(features) == 0 {
		return nil, evalerr.Insufficient("train split rows", 0, 1)
	}
	var total int
	for _, f := range features {
		total += f.TitleLen
	}
	avg := float64(total) / float64(len(features))
	if avg == 0 {
		avg = 1
	}
	return &LexicalScorer{K1: 1.2, B: 0.75, AvgTitleLen: avg}, nil
}

// Score saturates title_tf against the length-normalised title and divides by
// the query length, so long queries do not outscore short ones by size alone.
func (s *LexicalScorer) Score(f keyword.Features) float64 {
	if f.QueryLen == 0 || f.TitleTF == 0 {
		return 0
	}
	tf := float64(f.TitleTF)
	norm := 1 - s.B + s.B*float64(f.TitleLen)/s.AvgTitleLen
	return tf * (s.K1 + 1) / (tf + s.K1*norm) / float64(f.QueryLen)
}

// EvaluateLexicalFusion ranks the rows of split by cosine and by lexical match
// of query and title text, fuses the two with reciprocal rank fusion, and
// returns the results named cos, lexical and rrf in that order. The lexical
// scorer is fitted on the train split of rows.
func (h *Harness) EvaluateLexicalFusion(rows []models.Row, split string, k int) ([]*Result, error) {
	analyzer, err := keyword.NewAnalyzer()
	if err != nil {
		return nil, fmt.Errorf("lexical analyzer: %w", err)
	}
	features := make([]keyword.Features, len(rows))
	var train []keyword.Features
	for i := range rows {
		features[i] = analyzer.Features(rows[i].Query, rows[i].ProductTitle)
		if rows[i].Split == models.SplitTrain {
			train = append(train, features[i])
		}
	}
	scorer, err := FitLexicalScorer(train)
	if err != nil {
		return nil, err
	}

	var evalRows []models.Row
	var lexical []float64
	for i := range rows {
		if split != "" && split != dataset.SplitAll && rows[i].Split != split {
			continue
		}
		evalRows = append(evalRows, rows[i])
		lexical = append(lexical, scorer.Score(features[i]))
	}
	if len(evalRows) == 0 {
		return nil, evalerr.Insufficient(split+" split rows", 0, 1)
	}
	cosine, err := cosineColumn(evalRows)
	if err != nil {
		return nil, err
	}
	queryIDs := make([]string, len(evalRows))
	for i := range evalRows {
		queryIDs[i] = evalRows[i].QueryID
	}
	fused, err := metrics.FuseScores(queryIDs, cosine, lexical)
	if err != nil {
		return nil, err
	}
	h.logger.Debug("Lexical scorer fitted", zap.Int("train_rows", len(train)), zap.Float64("avg_title_len", scorer.AvgTitleLen))

	results := make([]*Result, 0, 3)
	for _, c := range []struct {
		name   string
		scores []float64
	}{{"cos", cosine}, {"lexical", lexical}, {"rrf", fused}} {
		res, err := h.scoreJudgments(c.name, judgeRows(evalRows, c.scores), k)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}
