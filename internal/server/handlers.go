package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxSearchSize bounds the size parameter the way index.max_result_window does.
const maxSearchSize = 10000

type errorBody struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
	Index  string `json:"index,omitempty"`
}

type bulkItem struct {
	Index  string     `json:"_index"`
	ID     string     `json:"_id"`
	Status int        `json:"status"`
	Result string     `json:"result,omitempty"`
	Error  *errorBody `json:"error,omitempty"`
}

type searchHit struct {
	Index  string         `json:"_index"`
	ID     string         `json:"_id"`
	Score  float64        `json:"_score"`
	Source map[string]any `json:"_source,omitempty"`
}

type searchResponse struct {
	Took     int64 `json:"took"`
	TimedOut bool  `json:"timed_out"`
	Hits     struct {
		Total struct {
			Value    int    `json:"value"`
			Relation string `json:"relation"`
		} `json:"total"`
		MaxScore *float64   `json:"max_score"`
		Hits     []searchHit `json:"hits"`
	} `json:"hits"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	n := len(s.indices)
	s.mu.RUnlock()
	s.respondJSON(w, "health", http.StatusOK, map[string]any{"status": "green", "indices": n})
}

func (s *Server) handleIndexExists(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	if _, ok := s.lookup(chi.URLParam(r, "index")); !ok {
		status = http.StatusNotFound
	}
	s.requests.WithLabelValues("exists", strconv.Itoa(status)).Inc()
	w.WriteHeader(status)
}

func (s *Server) handleCreateIndex(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "index")
	body := map[string]any{}
	if err := decodeOptional(r.Body, &body); err != nil {
		s.respondError(w, "create", http.StatusBadRequest, "parse_exception", err.Error(), name)
		return
	}
	m, err := parseMapping(body)
	if err != nil {
		s.respondError(w, "create", http.StatusBadRequest, "mapper_parsing_exception", err.Error(), name)
		return
	}

	s.mu.Lock()
	if _, ok := s.indices[name]; ok {
		s.mu.Unlock()
		s.respondError(w, "create", http.StatusBadRequest, "resource_already_exists_exception",
			fmt.Sprintf("index [%s] already exists", name), name)
		return
	}
	idx, err := newIndex(name, m, s.logger)
	if err != nil {
		s.mu.Unlock()
		s.logger.Error("create index failed", zap.String("index", name), zap.Error(err))
		s.respondError(w, "create", http.StatusInternalServerError, "exception", err.Error(), name)
		return
	}
	s.indices[name] = idx
	s.mu.Unlock()

	s.logger.Info("Created index",
		zap.String("index", name),
		zap.Int("dimension", m.dimension),
		zap.Bool("knn", m.knn),
		zap.String("space_type", m.spaceType))
	s.respondJSON(w, "create", http.StatusOK, map[string]any{"acknowledged": true, "index": name})
}

func (s *Server) handleDeleteIndex(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "index")
	s.mu.Lock()
	idx, ok := s.indices[name]
	delete(s.indices, name)
	s.mu.Unlock()
	if !ok {
		s.respondError(w, "delete", http.StatusNotFound, "index_not_found_exception", "no such index ["+name+"]", name)
		return
	}
	if err := idx.close(); err != nil {
		s.logger.Warn("closing deleted index", zap.String("index", name), zap.Error(err))
	}
	s.logger.Info("Deleted index", zap.String("index", name))
	s.respondJSON(w, "delete", http.StatusOK, map[string]any{"acknowledged": true})
}

// handleBulk reads NDJSON action/document pairs. Per-item failures are reported in
// the items array with errors=true, never as a failed request.
func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defaultIndex := chi.URLParam(r, "index")
	dec := json.NewDecoder(r.Body)
	var items []map[string]bulkItem
	failed := false

	for {
		var action map[string]map[string]any
		if err := dec.Decode(&action); err == io.EOF {
			break
		} else if err != nil {
			s.respondError(w, "bulk", http.StatusBadRequest, "parse_exception", "malformed action line: "+err.Error(), "")
			return
		}
		if len(action) != 1 {
			s.respondError(w, "bulk", http.StatusBadRequest, "illegal_argument_exception", "action line must have exactly one action", "")
			return
		}
		var op string
		var meta map[string]any
		for k, v := range action {
			op, meta = k, v
		}
		if op != "index" && op != "create" {
			s.respondError(w, "bulk", http.StatusBadRequest, "illegal_argument_exception", "unsupported bulk action ["+op+"]", "")
			return
		}
		var source map[string]any
		if err := dec.Decode(&source); err != nil {
			s.respondError(w, "bulk", http.StatusBadRequest, "parse_exception", "malformed document line: "+err.Error(), "")
			return
		}

		name, _ := meta["_index"].(string)
		if name == "" {
			name = defaultIndex
		}
		id, _ := meta["_id"].(string)
		item := bulkItem{Index: name, ID: id, Status: http.StatusCreated, Result: "created"}
		if idx, ok := s.lookup(name); !ok {
			item.Status, item.Result = http.StatusNotFound, ""
			item.Error = &errorBody{Type: "index_not_found_exception", Reason: "no such index [" + name + "]", Index: name}
		} else if id == "" {
			item.Status, item.Result = http.StatusBadRequest, ""
			item.Error = &errorBody{Type: "illegal_argument_exception", Reason: "document id is required", Index: name}
		} else if err := idx.add(id, source); err != nil {
			item.Status, item.Result = http.StatusBadRequest, ""
			item.Error = &errorBody{Type: "mapper_parsing_exception", Reason: err.Error(), Index: name}
		}
		if item.Error != nil {
			failed = true
		}
		items = append(items, map[string]bulkItem{op: item})
	}

	s.logger.Debug("bulk request", zap.Int("items", len(items)), zap.Bool("errors", failed))
	s.respondJSON(w, "bulk", http.StatusOK, map[string]any{
		"took":   time.Since(start).Milliseconds(),
		"errors": failed,
		"items":  items,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "index")
	idx, ok := s.lookup(name)
	if !ok {
		s.respondError(w, "refresh", http.StatusNotFound, "index_not_found_exception", "no such index ["+name+"]", name)
		return
	}
	if err := idx.refresh(r.Context()); err != nil {
		s.logger.Error("refresh failed", zap.String("index", name), zap.Error(err))
		s.respondError(w, "refresh", http.StatusInternalServerError, "exception", err.Error(), name)
		return
	}
	s.respondJSON(w, "refresh", http.StatusOK, map[string]any{
		"_shards": map[string]int{"total": 1, "successful": 1, "failed": 0},
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	name := chi.URLParam(r, "index")
	idx, ok := s.lookup(name)
	if !ok {
		s.respondError(w, "search", http.StatusNotFound, "index_not_found_exception", "no such index ["+name+"]", name)
		return
	}
	var req struct {
		Size   *int           `json:"size"`
		Query  map[string]any `json:"query"`
		Source any            `json:"_source"`
	}
	if err := decodeOptional(r.Body, &req); err != nil {
		s.respondError(w, "search", http.StatusBadRequest, "parse_exception", err.Error(), name)
		return
	}
	size := 10
	if req.Size != nil {
		size = *req.Size
	}
	if size < 0 || size > maxSearchSize {
		s.respondError(w, "search", http.StatusBadRequest, "illegal_argument_exception",
			fmt.Sprintf("size must be between 0 and %d, got %d", maxSearchSize, size), name)
		return
	}

	view := idx.snapshot()
	sr := &searcher{idx: idx, view: view}
	hits, total, err := sr.run(r.Context(), req.Query, size)
	if err != nil {
		var qe *queryError
		if errors.As(err, &qe) {
			s.respondError(w, "search", http.StatusBadRequest, qe.kind, qe.reason, name)
			return
		}
		s.logger.Error("search failed", zap.String("index", name), zap.Error(err))
		s.respondError(w, "search", http.StatusInternalServerError, "exception", err.Error(), name)
		return
	}

	excludes, include := sourceFilter(req.Source)
	var resp searchResponse
	resp.Hits.Total.Value = total
	resp.Hits.Total.Relation = "eq"
	resp.Hits.MaxScore = maxScore(hits)
	resp.Hits.Hits = make([]searchHit, len(hits))
	for i, h := range hits {
		hit := searchHit{Index: name, ID: h.doc.id, Score: h.score}
		if include {
			hit.Source = filterSource(h.doc.source, excludes)
		}
		resp.Hits.Hits[i] = hit
	}
	resp.Took = time.Since(start).Milliseconds()
	s.respondJSON(w, "search", http.StatusOK, resp)
}

// sourceFilter reads the _source option: false drops sources, an object may list excludes.
func sourceFilter(v any) (map[string]bool, bool) {
	switch t := v.(type) {
	case bool:
		return nil, t
	case map[string]any:
		excludes := map[string]bool{}
		for _, key := range []string{"exclude", "excludes"} {
			switch e := t[key].(type) {
			case string:
				excludes[e] = true
			case []any:
				for _, f := range e {
					if name, ok := f.(string); ok {
						excludes[name] = true
					}
				}
			}
		}
		return excludes, true
	}
	return nil, true
}

func filterSource(source map[string]any, excludes map[string]bool) map[string]any {
	out := make(map[string]any, len(source))
	for k, v := range source {
		if !excludes[k] {
			out[k] = v
		}
	}
	return out
}

// decodeOptional decodes a JSON body, treating an empty body as valid.
func decodeOptional(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil && err != io.EOF {
		return err
	}
	return nil
}

func (s *Server) respondJSON(w http.ResponseWriter, op string, status int, data interface{}) {
	s.requests.WithLabelValues(op, strconv.Itoa(status)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, op string, status int, kind, reason, index string) {
	s.respondJSON(w, op, status, map[string]any{
		"error":  errorBody{Type: kind, Reason: reason, Index: index},
		"status": status,
	})
}
