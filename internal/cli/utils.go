// Package cli provides report output for the hyoka command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/hyperjump/hyoka/internal/harness"
	"github.com/hyperjump/hyoka/internal/models"
)

// OutputFormat is the format for report output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" and "json".
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("unknown output format %q; use text or json", s)
}

// WriteEvaluation writes one evaluation result to w in the given format.
// The text form ends with the Took and Mean nDCG report lines.
func WriteEvaluation(w io.Writer, res *harness.Result, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, res)
	}
	fmt.Fprintf(w, "%s: %d queries, %d documents, k=%d\n", res.Name, res.Queries, res.Documents, res.K)
	fmt.Fprintf(w, "Took: %.06f s\n", res.SearchTook.Seconds())
	fmt.Fprintf(w, "Mean nDCG: %.03f\n", res.MeanNDCG)
	return nil
}

// WriteRun writes a persisted run, including its failed query count.
func WriteRun(w io.Writer, run *models.Run, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, run)
	}
	fmt.Fprintf(w, "id:          %s\n", run.ID)
	fmt.Fprintf(w, "name:        %s\n", run.Name)
	fmt.Fprintf(w, "mode:        %s\n", run.Mode)
	fmt.Fprintf(w, "created_at:  %s\n", run.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "queries:     %d   # %d failed\n", run.Queries, run.Failed)
	fmt.Fprintf(w, "documents:   %d\n", run.Documents)
	fmt.Fprintf(w, "k:           %d\n", run.K)
	for _, key := range sortedKeys(run.Params) {
		fmt.Fprintf(w, "param:       %s=%s\n", key, run.Params[key])
	}
	fmt.Fprintf(w, "Took: %.06f s\n", run.SearchTook.Seconds())
	fmt.Fprintf(w, "Mean nDCG: %.03f\n", run.MeanNDCG)
	return nil
}

// WriteRuns writes a run listing, one row per run in text form.
func WriteRuns(w io.Writer, runs []*models.Run, format OutputFormat) error {
	if format == OutputJSON {
		if runs == nil {
			runs = []*models.Run{}
		}
		return writeJSON(w, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tMODE\tK\tNDCG\tTOOK\tQUERIES\tFAILED\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.03f\t%.06f\t%d\t%d\t%s\n",
			r.ID, r.Name, r.Mode, r.K, r.MeanNDCG, r.SearchTook.Seconds(),
			r.Queries, r.Failed, r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
