package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyperjump/hyoka/internal/metrics"
	"github.com/hyperjump/hyoka/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "nested", "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStorage_RunCRUD(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	run := &models.Run{
		Name:       "vector",
		Mode:       models.RunModeBackend,
		K:          10,
		MeanNDCG:   0.625,
		SearchTook: 1500 * time.Millisecond,
		Queries:    4,
		Documents:  100,
		Failed:     1,
		Params:     map[string]string{"strategy": "vector", "size": "10"},
	}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatal(err)
	}
	if run.ID == "" {
		t.Fatal("CreateRun should assign an id")
	}
	if run.CreatedAt.IsZero() {
		t.Error("CreateRun should set CreatedAt")
	}

	got, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "vector" || got.Mode != models.RunModeBackend || got.K != 10 {
		t.Errorf("got %+v", got)
	}
	if got.MeanNDCG != 0.625 || got.SearchTook != 1500*time.Millisecond {
		t.Errorf("MeanNDCG=%v SearchTook=%v", got.MeanNDCG, got.SearchTook)
	}
	if got.Queries != 4 || got.Documents != 100 || got.Failed != 1 {
		t.Errorf("counts = %d/%d/%d", got.Queries, got.Documents, got.Failed)
	}
	if got.Params["strategy"] != "vector" || got.Params["size"] != "10" {
		t.Errorf("Params = %v", got.Params)
	}

	if err := store.DeleteRun(ctx, run.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetRun(ctx, run.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun after delete: err = %v, want ErrRunNotFound", err)
	}
	if err := store.DeleteRun(ctx, run.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("DeleteRun twice: err = %v, want ErrRunNotFound", err)
	}
}

func TestSQLiteStorage_KeepsGivenID(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	if err := store.CreateRun(ctx, &models.Run{ID: "fixed", Name: "n", Mode: models.RunModeIndex}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.GetRun(ctx, "fixed"); err != nil {
		t.Fatal(err)
	}
	if err := store.CreateRun(ctx, &models.Run{ID: "fixed", Name: "n", Mode: models.RunModeIndex}); err == nil {
		t.Error("duplicate id should fail")
	}
}

func TestSQLiteStorage_Outcomes(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	run := &models.Run{Name: "r", Mode: models.RunModeBackend}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatal(err)
	}
	outcomes := []models.QueryOutcome{
		{QueryID: "q2", Took: 3 * time.Millisecond, Latency: 5 * time.Millisecond, Hits: 10},
		{QueryID: "q1", Err: errors.New("backend: search failed")},
		{QueryID: "q3", Took: time.Millisecond, Latency: 2 * time.Millisecond, Hits: 7},
	}
	if err := store.BatchCreateOutcomes(ctx, run.ID, outcomes); err != nil {
		t.Fatal(err)
	}

	got, err := store.GetOutcomes(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(got))
	}
	for i, want := range []string{"q2", "q1", "q3"} {
		if got[i].QueryID != want {
			t.Errorf("outcome %d = %s, want %s", i, got[i].QueryID, want)
		}
	}
	if got[0].Took != 3*time.Millisecond || got[0].Latency != 5*time.Millisecond || got[0].Hits != 10 {
		t.Errorf("outcome 0 = %+v", got[0])
	}
	if !got[1].Failed() || got[1].Err.Error() != "backend: search failed" {
		t.Errorf("outcome 1 err = %v", got[1].Err)
	}
	if got[2].Failed() {
		t.Error("outcome 2 should not be failed")
	}
}

func TestSQLiteStorage_QueryScores(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	run := &models.Run{Name: "r", Mode: models.RunModePairwise}
	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatal(err)
	}
	scores := []metrics.QueryScore{
		{QueryID: "a", Candidates: 3, Value: 1},
		{QueryID: "b", Candidates: 5, Value: 0.25},
	}
	if err := store.BatchCreateQueryScores(ctx, run.ID, scores); err != nil {
		t.Fatal(err)
	}
	got, err := store.GetQueryScores(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != scores[0] || got[1] != scores[1] {
		t.Errorf("got %+v", got)
	}

	if err := store.DeleteRun(ctx, run.ID); err != nil {
		t.Fatal(err)
	}
	got, _ = store.GetQueryScores(ctx, run.ID)
	if len(got) != 0 {
		t.Errorf("expected no scores after delete, got %d", len(got))
	}
}

func TestSQLiteStorage_ListAndCount(t *testing.T) {
	store := newTestStorage(t)
	ctx := context.Background()

	n, err := store.CountRuns(ctx)
	if err != nil || n != 0 {
		t.Errorf("CountRuns: %v, %d", err, n)
	}
	for _, name := range []string{"first", "second", "third"} {
		if err := store.CreateRun(ctx, &models.Run{Name: name, Mode: models.RunModeIndex}); err != nil {
			t.Fatal(err)
		}
	}
	n, _ = store.CountRuns(ctx)
	if n != 3 {
		t.Errorf("expected 3 runs, got %d", n)
	}

	runs, err := store.ListRuns(ctx, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].Name != "third" || runs[1].Name != "second" {
		t.Errorf("first page = %v", runNames(runs))
	}
	runs, _ = store.ListRuns(ctx, 2, 2)
	if len(runs) != 1 || runs[0].Name != "first" {
		t.Errorf("second page = %v", runNames(runs))
	}
}

func TestSQLiteStorage_Memory(t *testing.T) {
	store, err := NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	ctx := context.Background()

	if err := store.CreateRun(ctx, &models.Run{Name: "m", Mode: models.RunModeIndex}); err != nil {
		t.Fatal(err)
	}
	if n, _ := store.CountRuns(ctx); n != 1 {
		t.Errorf("expected 1 run, got %d", n)
	}
}

func runNames(runs []*models.Run) []string {
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.Name
	}
	return out
}
