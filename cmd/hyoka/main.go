// Package main is the hyoka CLI entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/hyperjump/hyoka/internal/cli"
	"github.com/hyperjump/hyoka/internal/config"
	"github.com/hyperjump/hyoka/internal/storage"
	"github.com/hyperjump/hyoka/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/hyoka/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory wins if it exists, so runs from a project dir use the project's
// config. When the default path does not exist either, built-in defaults are used.
// Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return config.Default(), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	args := argsReorder(os.Args[2:])
	switch command {
	case "evaluate":
		runEvaluate(args)
	case "score":
		runScore(args)
	case "fuse":
		runFuse(args)
	case "bench":
		runBench(args)
	case "serve":
		runServe(args)
	case "vectorize":
		runVectorize(args)
	case "precision":
		runPrecision(args)
	case "runs":
		runRuns(args)
	case "export":
		runExport(args)
	case "version", "--version", "-v":
		fmt.Printf("hyoka version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`hyoka evaluates approximate nearest neighbour retrieval quality.

Usage: hyoka <command> [flags]

Commands:
  evaluate    build an in-process ANN index and report nDCG@k
  score       score labelled pairs by cosine (optionally quantized or rotated)
  fuse        fuse cosine with a second model or title term matches (RRF)
  bench       index and query a search backend concurrently, report took and nDCG
  serve       run the local search backend
  vectorize   embed query and title text, optionally add hashes and centroids
  precision   cross-modal precision@k of labelled items against label queries
  runs        list, show or delete saved runs
  export      export a saved run to an .xlsx workbook
  version     print the version

Run "hyoka <command> -h" for the flags of a command.
`)
}

// argsReorder moves flags that appear after positional arguments to the front,
// since the flag package stops at the first non-flag argument
// ("hyoka export <id> --out run.xlsx").
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// commonFlags are the flags every command that reads config accepts.
type commonFlags struct {
	configPath *string
	debug      *bool
	output     *string
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	return &commonFlags{
		configPath: fs.String("config", defaultConfigPath, "config file path"),
		debug:      fs.Bool("debug", false, "enable debug logging"),
		output:     fs.String("output", "text", "output format: text or json"),
	}
}

// env is what a command needs after flag parsing.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	format cli.OutputFormat
}

func setup(c *commonFlags) *env {
	cfg, resolved, err := loadConfig(*c.configPath)
	if err != nil {
		fail("load config", err)
	}
	format, err := cli.ParseOutputFormat(*c.output)
	if err != nil {
		fail("parse flags", err)
	}
	debugMode := cfg.Debug || *c.debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fail("create logger", err)
	}
	logger.Debug("config loaded",
		zap.String("config_path", resolved),
		zap.Bool("debug", debugMode),
	)
	return &env{cfg: cfg, logger: logger, format: format}
}

// openStorage opens the run database from config.
func (e *env) openStorage() storage.Storage {
	store, err := storage.NewSQLiteStorage(e.cfg.Storage.DatabasePath)
	if err != nil {
		fail("open run database", err)
	}
	return store
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// fail reports err as "Failed to <verb>: <err>" and exits 1.
func fail(verb string, err error) {
	fmt.Fprintf(os.Stderr, "Failed to %s: %v\n", verb, err)
	os.Exit(1)
}
