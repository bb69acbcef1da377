package dataset

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/hyoka/internal/evalerr"
	"github.com/hyperjump/hyoka/internal/models"
)

func sampleRows() []models.Row {
	return []models.Row{
		{QueryID: "q1", Query: "red shoe", ProductID: "p1", ProductTitle: "Red Shoe", Label: models.LabelExact, Split: models.SplitTrain, QueryVector: []float32{1, 0}, TitleVector: []float32{1, 0}},
		{QueryID: "q1", Query: "red shoe", ProductID: "p2", ProductTitle: "Blue Shoe", Label: models.LabelSubstitute, Split: models.SplitTest, QueryVector: []float32{1, 0}, TitleVector: []float32{0.6, 0.8}},
		{QueryID: "q2", Query: "laces", ProductID: "p1", ProductTitle: "Red Shoe", Label: models.LabelComplement, Split: models.SplitTest, QueryVector: []float32{0, 1}, TitleVector: []float32{1, 0}},
		{QueryID: "q2", Query: "laces", ProductID: "p3", ProductTitle: "Laces", Label: models.LabelExact, Split: models.SplitTest, QueryVector: []float32{0, 1}, TitleVector: []float32{0, 1}},
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "vectors.jsonl")
	rows := sampleRows()
	if err := Save(path, rows); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path, StageVectorize)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(rows) {
		t.Fatalf("loaded %d rows, want %d", len(got), len(rows))
	}
	if got[1].ProductTitle != "Blue Shoe" || got[1].TitleVector[1] != 0.8 {
		t.Errorf("row not preserved: %+v", got[1])
	}
}

func TestLoad_MissingFileNamesStage(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.jsonl"), StageHash)
	if !errors.Is(err, evalerr.ErrMissingPrecomputedData) {
		t.Fatalf("expected missing data error, got %v", err)
	}
	if !strings.Contains(err.Error(), StageHash) {
		t.Errorf("error should name the stage: %v", err)
	}
}

func TestRead_DefaultsLabelAndSkipsBlankLines(t *testing.T) {
	in := `{"query_id":"q","product_id":"p"}` + "\n\n"
	rows, err := Read(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Label != models.LabelIrrelevant {
		t.Errorf("unexpected rows %+v", rows)
	}
	if _, err := Read(strings.NewReader("{not json}\n")); err == nil {
		t.Error("expected decode error")
	}
}

func TestSplit_FirstRowWins(t *testing.T) {
	queries, docs := Split(sampleRows())
	if len(queries) != 2 || queries[0].ID != "q1" || queries[1].ID != "q2" {
		t.Errorf("unexpected queries %+v", queries)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(docs))
	}
	if docs[0].ID != "p1" || docs[0].Split != models.SplitTrain {
		t.Errorf("first document should come from the first p1 row: %+v", docs[0])
	}
	ids := DocumentIDs(docs)
	if strings.Join(ids, ",") != "p1,p2,p3" {
		t.Errorf("DocumentIDs = %v", ids)
	}
}

func TestGroupByQuery(t *testing.T) {
	groups := GroupByQuery(sampleRows())
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if len(groups[0]) != 2 || len(groups[1]) != 1 || groups[1][0].ID != "p3" {
		t.Errorf("unexpected groups %+v", groups)
	}
}

func TestFilterSplit(t *testing.T) {
	if n := len(FilterSplit(sampleRows(), models.SplitTest)); n != 3 {
		t.Errorf("test split has %d rows, want 3", n)
	}
	if n := len(FilterSplit(sampleRows(), "")); n != 4 {
		t.Errorf("empty split should keep all rows, got %d", n)
	}
}

func TestDimension(t *testing.T) {
	rows := sampleRows()
	dim, err := Dimension(rows)
	if err != nil || dim != 2 {
		t.Fatalf("Dimension = %d, %v", dim, err)
	}
	if err := CheckDimensions(rows, dim); err != nil {
		t.Fatal(err)
	}
	rows[2].TitleVector = []float32{1}
	if err := CheckDimensions(rows, dim); !errors.Is(err, evalerr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := Dimension(nil); !errors.Is(err, evalerr.ErrInsufficientData) {
		t.Errorf("expected insufficient data, got %v", err)
	}
}
