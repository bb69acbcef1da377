package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/blevesearch/bleve/v2"
	keywordanalyzer "github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

// BleveIndex implements TermIndex using Bleve with the keyword analyzer,
// so every stored value is one untokenized term.
type BleveIndex struct {
	index bleve.Index
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	// Terms are matched verbatim: "0101" must not be split or lowercased into something else.
	im.DefaultAnalyzer = keywordanalyzer.Name
	return im
}

// NewBleveIndex creates a Bleve index at path, or an in-memory one when path is empty.
// An existing index directory is opened and reused.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if path == "" {
		index, err := bleve.NewMemOnly(newMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index writes docs in one Bleve batch.
func (b *BleveIndex) Index(ctx context.Context, docs []TermDocument) error {
	if len(docs) == 0 {
		return nil
	}
	batch := b.index.NewBatch()
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		fields := make(map[string]interface{}, len(d.Fields))
		for name, terms := range d.Fields {
			values := make([]interface{}, len(terms))
			for i, t := range terms {
				values[i] = t
			}
			fields[name] = values
		}
		if err := batch.Index(d.ID, fields); err != nil {
			return fmt.Errorf("failed to index terms of %s: %w", d.ID, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("Bleve batch failed: %w", err)
	}
	return nil
}

// Match runs a disjunction of term queries on field. Ids are returned sorted.
func (b *BleveIndex) Match(ctx context.Context, field string, values []string) ([]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	count, err := b.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("failed to get doc count: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	queries := make([]blevequery.Query, len(values))
	for i, v := range values {
		tq := bleve.NewTermQuery(v)
		tq.SetField(field)
		queries[i] = tq
	}
	var q blevequery.Query = queries[0]
	if len(queries) > 1 {
		q = bleve.NewDisjunctionQuery(queries...)
	}
	req := bleve.NewSearchRequest(q)
	req.Size = int(count)
	results, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Bleve term search failed: %w", err)
	}
	ids := make([]string, len(results.Hits))
	for i, hit := range results.Hits {
		ids[i] = hit.ID
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes a document from the index.
func (b *BleveIndex) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

// DocCount returns the total number of documents in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}
