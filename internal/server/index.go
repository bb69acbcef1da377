package server

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/hyperjump/hyoka/internal/backend"
	"github.com/hyperjump/hyoka/internal/keyword"
	"github.com/hyperjump/hyoka/internal/vector"
	"go.uber.org/zap"
)

// mapping is what the server reads from an index creation body.
type mapping struct {
	dimension int
	knn       bool
	spaceType string
}

func parseMapping(body map[string]any) (mapping, error) {
	m := mapping{spaceType: "innerproduct"}
	if settings, ok := body["settings"].(map[string]any); ok {
		if v, ok := settings["index.knn"].(bool); ok {
			m.knn = v
		}
		if nested, ok := settings["index"].(map[string]any); ok {
			if v, ok := nested["knn"].(bool); ok {
				m.knn = v
			}
		}
	}
	mappings, _ := body["mappings"].(map[string]any)
	props, _ := mappings["properties"].(map[string]any)
	field, ok := props[backend.VectorField].(map[string]any)
	if !ok {
		return m, nil
	}
	if d, ok := field["dimension"].(float64); ok {
		if d <= 0 || d != float64(int(d)) {
			return m, fmt.Errorf("invalid dimension %v", d)
		}
		m.dimension = int(d)
	}
	if st, ok := field["space_type"].(string); ok {
		m.spaceType = st
	}
	if method, ok := field["method"].(map[string]any); ok {
		if st, ok := method["space_type"].(string); ok {
			m.spaceType = st
		}
		if name, _ := method["name"].(string); name == "hnsw" {
			m.knn = true
		}
	}
	return m, nil
}

type document struct {
	id     string
	source map[string]any
	vector []float32
}

// snapshot is the searchable state published by the last refresh.
type snapshot struct {
	order []string
	docs  map[string]*document
	// ann and annIDs are only set for knn-enabled indices.
	ann    vector.Index
	annIDs []string
}

type index struct {
	name    string
	mapping mapping
	terms   keyword.TermIndex
	logger  *zap.Logger

	mu      sync.Mutex
	pending []*document

	// refreshMu serialises refreshes so each one builds on the previous view.
	refreshMu sync.Mutex

	viewMu sync.RWMutex
	view   *snapshot
}

func newIndex(name string, m mapping, logger *zap.Logger) (*index, error) {
	terms, err := keyword.NewBleveIndex("")
	if err != nil {
		return nil, err
	}
	return &index{
		name:    name,
		mapping: m,
		terms:   terms,
		logger:  logger,
		view:    &snapshot{docs: map[string]*document{}},
	}, nil
}

// add parses and buffers one document. It is not searchable until refresh.
func (idx *index) add(id string, source map[string]any) error {
	var vec []float32
	if raw, ok := source[backend.VectorField]; ok && raw != nil {
		v, err := floats(raw)
		if err != nil {
			return fmt.Errorf("field [%s]: %w", backend.VectorField, err)
		}
		if idx.mapping.dimension > 0 && len(v) != idx.mapping.dimension {
			return fmt.Errorf("vector length invalid. Vector has %d dimensions but the mapping requires %d", len(v), idx.mapping.dimension)
		}
		vec = v
	}
	idx.mu.Lock()
	idx.pending = append(idx.pending, &document{id: id, source: source, vector: vec})
	idx.mu.Unlock()
	return nil
}

// refresh publishes buffered documents. Later writes to the same id replace earlier ones.
func (idx *index) refresh(ctx context.Context) error {
	idx.refreshMu.Lock()
	defer idx.refreshMu.Unlock()

	idx.mu.Lock()
	pending := idx.pending
	idx.pending = nil
	idx.mu.Unlock()
	if len(pending) == 0 {
		return nil
	}

	idx.viewMu.RLock()
	old := idx.view
	idx.viewMu.RUnlock()

	next := &snapshot{
		order: append([]string(nil), old.order...),
		docs:  make(map[string]*document, len(old.docs)+len(pending)),
	}
	for id, d := range old.docs {
		next.docs[id] = d
	}
	termDocs := make([]keyword.TermDocument, 0, len(pending))
	for _, d := range pending {
		if _, ok := next.docs[d.id]; !ok {
			next.order = append(next.order, d.id)
		}
		next.docs[d.id] = d
		termDocs = append(termDocs, keyword.TermDocument{ID: d.id, Fields: termFields(d.source)})
	}
	if err := idx.terms.Index(ctx, termDocs); err != nil {
		return err
	}
	if idx.mapping.knn {
		if err := next.buildANN(ctx, idx.mapping.dimension); err != nil {
			return err
		}
	}

	idx.viewMu.Lock()
	idx.view = next
	idx.viewMu.Unlock()
	idx.logger.Debug("Refreshed index",
		zap.String("index", idx.name),
		zap.Int("new", len(pending)),
		zap.Int("documents", len(next.order)))
	return nil
}

func (s *snapshot) buildANN(ctx context.Context, dimension int) error {
	var vectors [][]float32
	for _, id := range s.order {
		d := s.docs[id]
		if d.vector == nil {
			continue
		}
		if dimension == 0 {
			dimension = len(d.vector)
		}
		vectors = append(vectors, d.vector)
		s.annIDs = append(s.annIDs, id)
	}
	if len(vectors) == 0 {
		return nil
	}
	ann, err := vector.NewIndex(vector.DefaultOptions(vector.FamilyHNSW, dimension))
	if err != nil {
		return err
	}
	if err := ann.Add(ctx, vectors); err != nil {
		return err
	}
	s.ann = ann
	return nil
}

func (idx *index) snapshot() *snapshot {
	idx.viewMu.RLock()
	defer idx.viewMu.RUnlock()
	return idx.view
}

func (idx *index) close() error {
	return idx.terms.Close()
}

// termFields turns every scalar or scalar-array field except the vector into exact terms.
func termFields(source map[string]any) map[string][]string {
	fields := make(map[string][]string)
	for name, v := range source {
		if name == backend.VectorField {
			continue
		}
		if terms := termValues(v); len(terms) > 0 {
			fields[name] = terms
		}
	}
	return fields
}

func termValues(v any) []string {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := scalarTerm(e); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		if s, ok := scalarTerm(v); ok {
			return []string{s}
		}
	}
	return nil
}

func scalarTerm(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

func floats(v any) ([]float32, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected an array of numbers")
	}
	out := make([]float32, len(arr))
	for i, e := range arr {
		f, ok := e.(float64)
		if !ok {
			return nil, fmt.Errorf("element %d is not a number", i)
		}
		out[i] = float32(f)
	}
	return out, nil
}
