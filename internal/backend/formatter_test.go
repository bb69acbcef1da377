package backend

import (
	"reflect"
	"testing"

	"github.com/hyperjump/hyoka/internal/models"
)

var (
	testDoc   = models.Document{ID: "p1", Title: "Red Shoe", Vector: []float32{0.6, 0.8}, Hash: "10", Centroids: []int{3, 7}}
	testQuery = models.Query{ID: "q1", Text: "shoe", Vector: []float32{1, 0}, Hash: "10", Centroids: []int{7, 1}}
)

func scriptQuery(t *testing.T, body map[string]any) (map[string]any, map[string]any) {
	t.Helper()
	ss, ok := body["script_score"].(map[string]any)
	if !ok {
		t.Fatalf("not a script_score query: %v", body)
	}
	params := ss["script"].(map[string]any)["params"].(map[string]any)
	if params["field"] != "title_vector" || params["space_type"] != "innerproduct" {
		t.Errorf("unexpected script params %v", params)
	}
	if !reflect.DeepEqual(params["query_value"], testQuery.Vector) {
		t.Errorf("query vector not passed: %v", params["query_value"])
	}
	return ss["query"].(map[string]any), params
}

func TestVectorFormatter(t *testing.T) {
	f := VectorFormatter{}
	doc := f.FormatDocument(testDoc)
	if doc["product_title"] != "Red Shoe" || len(doc) != 2 {
		t.Errorf("unexpected document %v", doc)
	}
	filter, _ := scriptQuery(t, f.FormatQuery(testQuery))
	if _, ok := filter["match_all"]; !ok {
		t.Errorf("expected match_all filter, got %v", filter)
	}
}

func TestHashFormatter(t *testing.T) {
	f := HashFormatter{}
	if doc := f.FormatDocument(testDoc); doc["title_hash"] != "10" {
		t.Errorf("title_hash missing: %v", doc)
	}
	filter, _ := scriptQuery(t, f.FormatQuery(testQuery))
	match := filter["bool"].(map[string]any)["must"].(map[string]any)["match"].(map[string]any)
	if match["title_hash"] != "10" {
		t.Errorf("unexpected match %v", match)
	}
}

func TestCentroidFormatter(t *testing.T) {
	f := CentroidFormatter{}
	if doc := f.FormatDocument(testDoc); !reflect.DeepEqual(doc["title_centroids"], []int{3, 7}) {
		t.Errorf("title_centroids missing: %v", doc)
	}
	filter, _ := scriptQuery(t, f.FormatQuery(testQuery))
	should := filter["bool"].(map[string]any)["should"].([]any)
	if len(should) != 2 {
		t.Fatalf("expected one clause per centroid, got %v", should)
	}
	first := should[0].(map[string]any)["match"].(map[string]any)
	if first["title_centroids"] != 7 {
		t.Errorf("unexpected clause %v", first)
	}
}

func TestKNNFormatter(t *testing.T) {
	body := KNNFormatter{K: 10}.FormatQuery(testQuery)
	knn := body["knn"].(map[string]any)["title_vector"].(map[string]any)
	if knn["k"] != 10 || !reflect.DeepEqual(knn["vector"], testQuery.Vector) {
		t.Errorf("unexpected knn query %v", knn)
	}
}

func TestNewStrategy(t *testing.T) {
	for _, name := range Strategies() {
		s, err := NewStrategy(name, 4, 10)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if s.Formatter == nil || s.IndexOptions == nil {
			t.Errorf("%s: incomplete strategy", name)
		}
	}
	hnsw, _ := NewStrategy(StrategyHNSW, 4, 10)
	if hnsw.IndexOptions["settings"].(map[string]any)["index.knn"] != true {
		t.Errorf("hnsw strategy must enable knn: %v", hnsw.IndexOptions)
	}
	byteOpts, _ := NewStrategy(StrategyByte, 4, 10)
	field := byteOpts.IndexOptions["mappings"].(map[string]any)["properties"].(map[string]any)["title_vector"].(map[string]any)
	if field["data_type"] != "byte" {
		t.Errorf("byte strategy must map int8 vectors: %v", field)
	}
	if _, err := NewStrategy("bm25", 4, 10); err == nil {
		t.Error("expected error for unknown strategy")
	}
}
