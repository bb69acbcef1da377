package server

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/hyperjump/hyoka/internal/vector"
	"github.com/hyperjump/hyoka/pkg/utils"
)

// queryError is a malformed or unsupported query, reported as a 400.
type queryError struct {
	kind   string
	reason string
}

func (e *queryError) Error() string { return e.reason }

func parsingError(format string, args ...any) error {
	return &queryError{kind: "parsing_exception", reason: fmt.Sprintf(format, args...)}
}

type scoredDoc struct {
	doc   *document
	score float64
}

// searcher evaluates one query against a snapshot.
type searcher struct {
	idx  *index
	view *snapshot
}

// run returns the top size hits and the total number of matching documents.
func (s *searcher) run(ctx context.Context, q map[string]any, size int) ([]scoredDoc, int, error) {
	if q == nil {
		q = map[string]any{"match_all": map[string]any{}}
	}
	kind, body, err := single(q)
	if err != nil {
		return nil, 0, err
	}

	var hits []scoredDoc
	switch kind {
	case "knn":
		hits, err = s.knn(ctx, body)
	case "script_score":
		hits, err = s.scriptScore(ctx, body)
	default:
		var ids map[string]struct{}
		ids, err = s.filter(ctx, q)
		if err == nil {
			hits = s.constant(ids)
		}
	}
	if err != nil {
		return nil, 0, err
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	total := len(hits)
	if len(hits) > size {
		hits = hits[:size]
	}
	return hits, total, nil
}

// single unpacks a one-key query object.
func single(q map[string]any) (string, map[string]any, error) {
	if len(q) != 1 {
		return "", nil, parsingError("query must have exactly one clause, got %d", len(q))
	}
	for k, v := range q {
		body, ok := v.(map[string]any)
		if !ok {
			return "", nil, parsingError("[%s] query malformed, no start_object after query name", k)
		}
		return k, body, nil
	}
	return "", nil, nil
}

// constant scores every matched document 1.0 in index order. A nil set means all.
func (s *searcher) constant(ids map[string]struct{}) []scoredDoc {
	var out []scoredDoc
	for _, id := range s.view.order {
		if ids != nil {
			if _, ok := ids[id]; !ok {
				continue
			}
		}
		out = append(out, scoredDoc{doc: s.view.docs[id], score: 1})
	}
	return out
}

// filter returns the ids matched by a boolean/term query, or nil for "all documents".
func (s *searcher) filter(ctx context.Context, q map[string]any) (map[string]struct{}, error) {
	kind, body, err := single(q)
	if err != nil {
		return nil, err
	}
	switch kind {
	case "match_all":
		return nil, nil
	case "match", "term", "terms":
		return s.match(ctx, kind, body)
	case "bool":
		return s.boolean(ctx, body)
	}
	return nil, parsingError("unknown query [%s]", kind)
}

func (s *searcher) match(ctx context.Context, kind string, body map[string]any) (map[string]struct{}, error) {
	if len(body) != 1 {
		return nil, parsingError("[%s] query doesn't support multiple fields", kind)
	}
	for field, v := range body {
		if inner, ok := v.(map[string]any); ok {
			if qv, ok := inner["query"]; ok {
				v = qv
			} else if qv, ok := inner["value"]; ok {
				v = qv
			}
		}
		values := termValues(v)
		if len(values) == 0 {
			return nil, parsingError("[%s] query on [%s] has no value", kind, field)
		}
		ids, err := s.idx.terms.Match(ctx, field, values)
		if err != nil {
			return nil, err
		}
		set := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			set[id] = struct{}{}
		}
		return set, nil
	}
	return nil, nil
}

// boolean supports must, filter, should and must_not. should only restricts the
// result when there is no must or filter clause.
func (s *searcher) boolean(ctx context.Context, body map[string]any) (map[string]struct{}, error) {
	var result map[string]struct{}
	all := true
	intersect := func(set map[string]struct{}) {
		if set == nil {
			return
		}
		if all {
			result, all = set, false
			return
		}
		for id := range result {
			if _, ok := set[id]; !ok {
				delete(result, id)
			}
		}
	}

	for _, key := range []string{"must", "filter"} {
		clauses, err := clauseList(body[key])
		if err != nil {
			return nil, err
		}
		for _, c := range clauses {
			set, err := s.filter(ctx, c)
			if err != nil {
				return nil, err
			}
			intersect(set)
		}
	}

	should, err := clauseList(body["should"])
	if err != nil {
		return nil, err
	}
	if len(should) > 0 && body["must"] == nil && body["filter"] == nil {
		union := map[string]struct{}{}
		matchAll := false
		for _, c := range should {
			set, err := s.filter(ctx, c)
			if err != nil {
				return nil, err
			}
			if set == nil {
				matchAll = true
				continue
			}
			for id := range set {
				union[id] = struct{}{}
			}
		}
		if !matchAll {
			intersect(union)
		}
	}

	mustNot, err := clauseList(body["must_not"])
	if err != nil {
		return nil, err
	}
	for _, c := range mustNot {
		set, err := s.filter(ctx, c)
		if err != nil {
			return nil, err
		}
		if set == nil {
			return map[string]struct{}{}, nil
		}
		if all {
			result, all = make(map[string]struct{}, len(s.view.order)), false
			for _, id := range s.view.order {
				result[id] = struct{}{}
			}
		}
		for id := range set {
			delete(result, id)
		}
	}
	if all {
		return nil, nil
	}
	return result, nil
}

func clauseList(v any) ([]map[string]any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return []map[string]any{t}, nil
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, e := range t {
			c, ok := e.(map[string]any)
			if !ok {
				return nil, parsingError("[bool] clause must be an object")
			}
			out = append(out, c)
		}
		return out, nil
	}
	return nil, parsingError("[bool] clause must be an object or array")
}

// scriptScore rescores the documents matched by the inner query against a query vector.
func (s *searcher) scriptScore(ctx context.Context, body map[string]any) ([]scoredDoc, error) {
	inner, _ := body["query"].(map[string]any)
	if inner == nil {
		inner = map[string]any{"match_all": map[string]any{}}
	}
	script, _ := body["script"].(map[string]any)
	params, _ := script["params"].(map[string]any)
	if params == nil {
		return nil, parsingError("[script_score] requires script.params")
	}
	qv, err := floats(params["query_value"])
	if err != nil {
		return nil, parsingError("[script_score] query_value: %v", err)
	}
	space, _ := params["space_type"].(string)
	if space == "" {
		space = s.idx.mapping.spaceType
	}
	score, err := scorer(space)
	if err != nil {
		return nil, err
	}

	ids, err := s.filter(ctx, inner)
	if err != nil {
		return nil, err
	}
	var out []scoredDoc
	for _, id := range s.view.order {
		if ids != nil {
			if _, ok := ids[id]; !ok {
				continue
			}
		}
		d := s.view.docs[id]
		if d.vector == nil {
			continue
		}
		if len(d.vector) != len(qv) {
			return nil, &queryError{
				kind:   "illegal_argument_exception",
				reason: fmt.Sprintf("query vector has %d dimensions, document %s has %d", len(qv), id, len(d.vector)),
			}
		}
		out = append(out, scoredDoc{doc: d, score: score(qv, d.vector)})
	}
	return out, nil
}

// knn answers a native approximate nearest neighbour query from the refresh-time graph.
func (s *searcher) knn(ctx context.Context, body map[string]any) ([]scoredDoc, error) {
	if len(body) != 1 {
		return nil, parsingError("[knn] requires exactly one field")
	}
	var field map[string]any
	for _, v := range body {
		field, _ = v.(map[string]any)
	}
	if field == nil {
		return nil, parsingError("[knn] field must be an object")
	}
	qv, err := floats(field["vector"])
	if err != nil {
		return nil, parsingError("[knn] vector: %v", err)
	}
	kf, _ := field["k"].(float64)
	k := int(kf)
	if k <= 0 {
		return nil, parsingError("[knn] k must be positive")
	}
	if !s.idx.mapping.knn {
		return nil, &queryError{kind: "illegal_argument_exception", reason: fmt.Sprintf("index %s is not knn-enabled", s.idx.name)}
	}
	if s.view.ann == nil {
		return nil, nil
	}
	if s.view.ann.Dimensions() != len(qv) {
		return nil, &queryError{
			kind:   "illegal_argument_exception",
			reason: fmt.Sprintf("query vector has %d dimensions, index has %d", len(qv), s.view.ann.Dimensions()),
		}
	}
	scores, positions, err := s.view.ann.Search(ctx, [][]float32{qv}, k)
	if err != nil {
		return nil, err
	}
	var out []scoredDoc
	for i, pos := range positions[0] {
		if pos < 0 {
			continue
		}
		d := s.view.docs[s.view.annIDs[pos]]
		out = append(out, scoredDoc{doc: d, score: innerProductScore(float64(scores[0][i]))})
	}
	return out, nil
}

func scorer(space string) (func(q, d []float32) float64, error) {
	switch space {
	case "innerproduct":
		return func(q, d []float32) float64 {
			return innerProductScore(float64(vector.InnerProduct(q, d)))
		}, nil
	case "cosinesimil":
		return func(q, d []float32) float64 {
			return 1 + utils.Cosine(q, d)
		}, nil
	case "l2":
		return func(q, d []float32) float64 {
			var sum float64
			for i := range q {
				diff := float64(q[i] - d[i])
				sum += diff * diff
			}
			return 1 / (1 + sum)
		}, nil
	}
	return nil, &queryError{kind: "illegal_argument_exception", reason: fmt.Sprintf("unsupported space_type [%s]", space)}
}

// innerProductScore maps an inner product onto a positive, order-preserving score.
func innerProductScore(ip float64) float64 {
	if ip >= 0 {
		return ip + 1
	}
	return 1 / (1 - ip)
}

func maxScore(hits []scoredDoc) *float64 {
	if len(hits) == 0 {
		return nil
	}
	m := math.Inf(-1)
	for _, h := range hits {
		m = math.Max(m, h.score)
	}
	return &m
}
