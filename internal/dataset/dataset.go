// Package dataset reads and writes labelled (query, product) rows stored as JSON lines,
// and derives the query and document sets an evaluation runs over.
package dataset

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hyperjump/hyoka/internal/evalerr"
	"github.com/hyperjump/hyoka/internal/models"
)

// Stages that produce dataset files. Used in missing-data messages.
const (
	StageVectorize = "vectorize"
	StageHash      = "vectorize --hash"
	StageCentroids = "vectorize --centroids"
)

// SplitAll selects every row regardless of its split tag.
const SplitAll = "all"

// maxLineBytes bounds one JSON line; a 1024-dim row with two vectors is well under it.
const maxLineBytes = 16 << 20

// Load reads rows from a JSON lines file. A missing file is reported as
// MissingPrecomputedDataError naming the stage that writes it.
func Load(path, stage string) ([]models.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &evalerr.MissingPrecomputedDataError{Path: path, Stage: stage}
		}
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Read decodes JSON lines from r. Blank lines are skipped.
func Read(r io.Reader) ([]models.Row, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var rows []models.Row
	line := 0
	for scanner.Scan() {
		line++
		b := scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		var row models.Row
		if err := json.Unmarshal(b, &row); err != nil {
			return nil, fmt.Errorf("decode line %d: %w", line, err)
		}
		if row.Label == "" {
			row.Label = models.LabelIrrelevant
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	return rows, nil
}

// Save writes rows as JSON lines, creating parent directories.
func Save(path string, rows []models.Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dataset file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := Write(w, rows); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush dataset: %w", err)
	}
	return f.Close()
}

// Write encodes rows as JSON lines.
func Write(w io.Writer, rows []models.Row) error {
	enc := json.NewEncoder(w)
	for i := range rows {
		if err := enc.Encode(&rows[i]); err != nil {
			return fmt.Errorf("encode row %d: %w", i, err)
		}
	}
	return nil
}

// FilterSplit returns the rows tagged with split. An empty split or "all" returns rows unchanged.
func FilterSplit(rows []models.Row, split string) []models.Row {
	if split == "" || split == SplitAll {
		return rows
	}
	out := make([]models.Row, 0, len(rows))
	for _, r := range rows {
		if r.Split == split {
			out = append(out, r)
		}
	}
	return out
}

// Split derives the query set (first row per query id) and the document set
// (first row per product id), both in first-appearance order.
func Split(rows []models.Row) ([]models.Query, []models.Document) {
	seenQ := make(map[string]bool)
	seenD := make(map[string]bool)
	var queries []models.Query
	var docs []models.Document
	for i := range rows {
		r := &rows[i]
		if !seenQ[r.QueryID] {
			seenQ[r.QueryID] = true
			queries = append(queries, r.QueryPart())
		}
		if !seenD[r.ProductID] {
			seenD[r.ProductID] = true
			docs = append(docs, r.Document())
		}
	}
	return queries, docs
}

// GroupByQuery returns the documents of each query group, in first-appearance order.
// A product listed under several queries appears in the first group only.
func GroupByQuery(rows []models.Row) [][]models.Document {
	index := make(map[string]int)
	seenD := make(map[string]bool)
	var groups [][]models.Document
	for i := range rows {
		r := &rows[i]
		g, ok := index[r.QueryID]
		if !ok {
			g = len(groups)
			index[r.QueryID] = g
			groups = append(groups, nil)
		}
		if seenD[r.ProductID] {
			continue
		}
		seenD[r.ProductID] = true
		groups[g] = append(groups[g], r.Document())
	}
	return groups
}

// Dimension is the length of the first query vector.
func Dimension(rows []models.Row) (int, error) {
	for i := range rows {
		if len(rows[i].QueryVector) > 0 {
			return len(rows[i].QueryVector), nil
		}
	}
	return 0, evalerr.Insufficient("rows with a query vector", 0, 1)
}

// CheckDimensions verifies every query and title vector has dim coordinates.
func CheckDimensions(rows []models.Row, dim int) error {
	for i := range rows {
		if n := len(rows[i].QueryVector); n != dim {
			return evalerr.DimensionMismatch(fmt.Sprintf("query_vector of row %d", i), dim, n)
		}
		if n := len(rows[i].TitleVector); n != dim {
			return evalerr.DimensionMismatch(fmt.Sprintf("title_vector of row %d", i), dim, n)
		}
	}
	return nil
}

// QueryVectors collects query vectors in order.
func QueryVectors(queries []models.Query) [][]float32 {
	out := make([][]float32, len(queries))
	for i, q := range queries {
		out[i] = q.Vector
	}
	return out
}

// TitleVectors collects document vectors in order.
func TitleVectors(docs []models.Document) [][]float32 {
	out := make([][]float32, len(docs))
	for i, d := range docs {
		out[i] = d.Vector
	}
	return out
}

// DocumentIDs collects document ids in order.
func DocumentIDs(docs []models.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

// QueryIDs collects query ids in order.
func QueryIDs(queries []models.Query) []string {
	out := make([]string, len(queries))
	for i, q := range queries {
		out[i] = q.ID
	}
	return out
}

// RowTitleVectors returns the title vector of every row, duplicates included.
func RowTitleVectors(rows []models.Row) [][]float32 {
	out := make([][]float32, len(rows))
	for i := range rows {
		out[i] = rows[i].TitleVector
	}
	return out
}

// RowQueryVectors returns the query vector of every row, duplicates included.
func RowQueryVectors(rows []models.Row) [][]float32 {
	out := make([][]float32, len(rows))
	for i := range rows {
		out[i] = rows[i].QueryVector
	}
	return out
}
