package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/hyperjump/hyoka/internal/cli"
	"github.com/hyperjump/hyoka/internal/harness"
	"github.com/hyperjump/hyoka/internal/models"
	"github.com/hyperjump/hyoka/internal/storage"
)

// runSaver persists evaluation results as runs.
type runSaver struct {
	store  storage.Storage
	logger *zap.Logger
}

func newRunSaver(e *env) *runSaver {
	return &runSaver{store: e.openStorage(), logger: e.logger}
}

func (s *runSaver) Close() error {
	return s.store.Close()
}

// saveResult stores res, its per-query scores and, when given, the backend outcomes.
func (s *runSaver) saveResult(ctx context.Context, res *harness.Result, mode string, params map[string]string, outcomes []models.QueryOutcome) (*models.Run, error) {
	run := &models.Run{
		Name:       res.Name,
		Mode:       mode,
		K:          res.K,
		MeanNDCG:   res.MeanNDCG,
		SearchTook: res.SearchTook,
		Queries:    res.Queries,
		Documents:  res.Documents,
		Params:     params,
	}
	for i := range outcomes {
		if outcomes[i].Failed() {
			run.Failed++
		}
	}
	if len(outcomes) > 0 {
		run.Queries = len(outcomes)
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		return nil, err
	}
	if len(res.PerQuery) > 0 {
		if err := s.store.BatchCreateQueryScores(ctx, run.ID, res.PerQuery); err != nil {
			return nil, err
		}
	}
	if len(outcomes) > 0 {
		if err := s.store.BatchCreateOutcomes(ctx, run.ID, outcomes); err != nil {
			return nil, err
		}
	}
	s.logger.Info("Saved run",
		zap.String("id", run.ID),
		zap.String("name", run.Name),
		zap.String("mode", run.Mode))
	return run, nil
}

func printRunsUsage() {
	fmt.Println("Usage: hyoka runs <list|show|delete|status> [flags] [run-id]")
	fmt.Println("  hyoka runs list             List saved runs, newest first")
	fmt.Println("  hyoka runs show <run-id>    Show one run")
	fmt.Println("  hyoka runs delete <run-id>  Delete a run and its per-query rows")
	fmt.Println("  hyoka runs status           Show the run count and database size")
}

// runsStatus is the shape of "hyoka runs status --output json".
type runsStatus struct {
	Runs           int64  `json:"runs"`
	DatabasePath   string `json:"database_path"`
	DiskUsageBytes *int64 `json:"disk_usage_bytes,omitempty"`
}

func writeRunsStatus(status runsStatus, format cli.OutputFormat) error {
	if format == cli.OutputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	fmt.Printf("runs:              %d\n", status.Runs)
	fmt.Printf("database_path:     %s\n", status.DatabasePath)
	if status.DiskUsageBytes != nil {
		fmt.Printf("disk_usage_bytes:  %d   # database plus WAL files\n", *status.DiskUsageBytes)
	}
	return nil
}

func runRuns(args []string) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	common := addCommonFlags(fs)
	limit := fs.Int("limit", 20, "number of runs to list")
	offset := fs.Int("offset", 0, "number of runs to skip")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		printRunsUsage()
		os.Exit(1)
	}
	sub := fs.Arg(0)
	e := setup(common)
	defer e.logger.Sync()
	store := e.openStorage()
	defer store.Close()
	ctx := context.Background()

	switch sub {
	case "list":
		runs, err := store.ListRuns(ctx, *offset, *limit)
		if err != nil {
			fail("list runs", err)
		}
		if err := cli.WriteRuns(os.Stdout, runs, e.format); err != nil {
			fail("write output", err)
		}
	case "show":
		run := getRun(ctx, store, fs.Arg(1))
		if err := cli.WriteRun(os.Stdout, run, e.format); err != nil {
			fail("write output", err)
		}
	case "delete":
		if fs.NArg() < 2 {
			printRunsUsage()
			os.Exit(1)
		}
		if err := store.DeleteRun(ctx, fs.Arg(1)); err != nil {
			fail("delete run", err)
		}
		fmt.Printf("Run deleted: %s\n", fs.Arg(1))
	case "status":
		count, err := store.CountRuns(ctx)
		if err != nil {
			fail("count runs", err)
		}
		status := runsStatus{Runs: count, DatabasePath: e.cfg.Storage.DatabasePath}
		if size, err := storage.DatabaseSize(e.cfg.Storage.DatabasePath); err == nil {
			status.DiskUsageBytes = &size
		}
		if err := writeRunsStatus(status, e.format); err != nil {
			fail("write output", err)
		}
	default:
		fmt.Printf("Unknown runs subcommand: %s\n", sub)
		printRunsUsage()
		os.Exit(1)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	common := addCommonFlags(fs)
	out := fs.String("out", "", "output .xlsx path; defaults to <run-id>.xlsx")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Println("Usage: hyoka export [flags] <run-id>")
		os.Exit(1)
	}
	e := setup(common)
	defer e.logger.Sync()
	store := e.openStorage()
	defer store.Close()
	ctx := context.Background()

	run := getRun(ctx, store, fs.Arg(0))
	outcomes, err := store.GetOutcomes(ctx, run.ID)
	if err != nil {
		fail("read outcomes", err)
	}
	scores, err := store.GetQueryScores(ctx, run.ID)
	if err != nil {
		fail("read query scores", err)
	}

	path := firstNonEmpty(*out, run.ID+".xlsx")
	f, err := os.Create(path)
	if err != nil {
		fail("create export file", err)
	}
	if err := cli.WriteOutcomesXLSX(f, run, outcomes, scores); err != nil {
		_ = f.Close()
		fail("export run", err)
	}
	if err := f.Close(); err != nil {
		fail("export run", err)
	}
	fmt.Printf("Exported run %s to %s (%d outcomes, %d query scores)\n", run.ID, path, len(outcomes), len(scores))
}

func getRun(ctx context.Context, store storage.Storage, id string) *models.Run {
	if id == "" {
		printRunsUsage()
		os.Exit(1)
	}
	run, err := store.GetRun(ctx, id)
	if errors.Is(err, storage.ErrRunNotFound) {
		fail("find run", err)
	}
	if err != nil {
		fail("read run", err)
	}
	return run
}
