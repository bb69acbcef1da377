package cli

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/hyperjump/hyoka/internal/metrics"
	"github.com/hyperjump/hyoka/internal/models"
)

// Sheet names of an exported run workbook.
const (
	SheetSummary  = "Summary"
	SheetOutcomes = "Outcomes"
	SheetScores   = "Scores"
)

// WriteOutcomesXLSX writes a workbook with a summary sheet for run, one row per
// query outcome, and one row per query nDCG. Empty outcome or score lists still
// produce their sheet with a header row.
func WriteOutcomesXLSX(w io.Writer, run *models.Run, outcomes []models.QueryOutcome, scores []metrics.QueryScore) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	summary := [][]any{
		{"id", run.ID},
		{"name", run.Name},
		{"mode", run.Mode},
		{"k", run.K},
		{"mean_ndcg", run.MeanNDCG},
		{"search_took_s", run.SearchTook.Seconds()},
		{"queries", run.Queries},
		{"failed", run.Failed},
		{"documents", run.Documents},
		{"created_at", run.CreatedAt.Format("2006-01-02 15:04:05")},
	}
	for _, key := range sortedKeys(run.Params) {
		summary = append(summary, []any{"param." + key, run.Params[key]})
	}
	if err := writeRows(f, SheetSummary, summary); err != nil {
		return err
	}

	rows := [][]any{{"query_id", "took_ms", "latency_ms", "hits", "error"}}
	for _, o := range outcomes {
		errText := ""
		if o.Err != nil {
			errText = o.Err.Error()
		}
		rows = append(rows, []any{
			o.QueryID,
			float64(o.Took.Microseconds()) / 1000,
			float64(o.Latency.Microseconds()) / 1000,
			o.Hits,
			errText,
		})
	}
	if err := newSheet(f, SheetOutcomes, rows); err != nil {
		return err
	}

	rows = [][]any{{"query_id", "candidates", "ndcg"}}
	for _, s := range scores {
		rows = append(rows, []any{s.QueryID, s.Candidates, s.Value})
	}
	if err := newSheet(f, SheetScores, rows); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func newSheet(f *excelize.File, name string, rows [][]any) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %q: %w", name, err)
	}
	return writeRows(f, name, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
