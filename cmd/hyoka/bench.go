package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/hyoka/internal/backend"
	"github.com/hyperjump/hyoka/internal/cli"
	"github.com/hyperjump/hyoka/internal/config"
	"github.com/hyperjump/hyoka/internal/dataset"
	"github.com/hyperjump/hyoka/internal/executor"
	"github.com/hyperjump/hyoka/internal/harness"
	"github.com/hyperjump/hyoka/internal/models"
	"github.com/hyperjump/hyoka/internal/server"
)

// strategyStage names the vectorize stage that writes the columns a strategy reads.
func strategyStage(strategy string) string {
	switch strategy {
	case backend.StrategyHash:
		return dataset.StageHash
	case backend.StrategyCentroid:
		return dataset.StageCentroids
	}
	return dataset.StageVectorize
}

// prepareRows applies what a strategy needs on top of the stored dataset: byte
// indices take int8 codes calibrated on the train split.
func prepareRows(rows []models.Row, strategy string) ([]models.Row, error) {
	if strategy != backend.StrategyByte {
		return rows, nil
	}
	_, docs := dataset.Split(dataset.FilterSplit(rows, models.SplitTrain))
	return dataset.QuantizeRows(rows, dataset.TitleVectors(docs))
}

// benchRows prepares the whole dataset for a strategy and only then narrows it
// to the split, so byte calibration always sees the train rows.
func benchRows(rows []models.Row, split, strategy string) ([]models.Row, error) {
	prepared, err := prepareRows(rows, strategy)
	if err != nil {
		return nil, err
	}
	return dataset.FilterSplit(prepared, split), nil
}

// executorOptions maps the executor config section onto executor options.
func executorOptions(cfg *config.ExecutorConfig, logger *zap.Logger) ([]executor.Option, error) {
	indexPolicy, err := executor.ParseFailurePolicy(cfg.IndexFailurePolicy)
	if err != nil {
		return nil, err
	}
	queryPolicy, err := executor.ParseFailurePolicy(cfg.QueryFailurePolicy)
	if err != nil {
		return nil, err
	}
	return []executor.Option{
		executor.WithConcurrency(cfg.Concurrency),
		executor.WithIndexPolicy(indexPolicy),
		executor.WithQueryPolicy(queryPolicy),
		executor.WithRateLimit(cfg.RequestsPerSecond),
		executor.WithLogger(logger),
		executor.WithProgress(cfg.ProgressEvery, func(p executor.Progress) {
			logger.Info("Progress",
				zap.String("op", p.Op),
				zap.Int("done", p.Done),
				zap.Int("total", p.Total),
				zap.Int("failed", p.Failed),
				zap.Duration("elapsed", p.Elapsed))
		}),
	}, nil
}

// startLocalBackend serves an in-process backend on a loopback port.
func startLocalBackend(logger *zap.Logger) (*server.Server, string, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, "", err
	}
	srv := server.NewServer(&config.ServerConfig{Host: "127.0.0.1"}, logger)
	go func() {
		if err := srv.Serve(l); err != nil {
			logger.Error("Local backend failed", zap.Error(err))
		}
	}()
	return srv, "http://" + l.Addr().String(), nil
}

// serveMetrics exposes reg on addr until the process exits.
func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		logger.Info("Serving metrics", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("Metrics listener failed", zap.Error(err))
		}
	}()
}

func runBench(args []string) {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	common := addCommonFlags(fs)
	datasetPath := fs.String("dataset", "", "vectorized dataset (JSON lines); defaults to evaluation.dataset_path")
	strategyName := fs.String("strategy", "", "index strategy: vector, hash, centroid, hnsw or byte; defaults to evaluation.strategy")
	url := fs.String("url", "", "backend URL; defaults to backend.url")
	indexName := fs.String("index", "", "index name; defaults to backend.index_name, or a generated name")
	size := fs.Int("size", 0, "hits per query; defaults to evaluation.size")
	k := fs.Int("k", 0, "nDCG cutoff; defaults to evaluation.k")
	split := fs.String("split", "", "split to index and query; defaults to evaluation.split")
	concurrency := fs.Int("concurrency", 0, "operations in flight; defaults to executor.concurrency")
	local := fs.Bool("local", false, "run against an in-process backend instead of -url")
	metricsAddr := fs.String("metrics-addr", "", "serve executor metrics on this address; defaults to metrics.addr")
	save := fs.Bool("save", true, "save the run to the run database")
	_ = fs.Parse(args)

	e := setup(common)
	defer e.logger.Sync()
	cfg := e.cfg
	logger := e.logger
	if *concurrency > 0 {
		cfg.Executor.Concurrency = *concurrency
	}
	strategyKey := firstNonEmpty(*strategyName, cfg.Evaluation.Strategy)
	path := firstNonEmpty(*datasetPath, cfg.Evaluation.DatasetPath)
	splitName := firstNonEmpty(*split, cfg.Evaluation.Split)
	hits := firstPositive(*size, cfg.Evaluation.Size)
	cutoff := firstPositive(*k, cfg.Evaluation.K)

	rows, err := dataset.Load(path, strategyStage(strategyKey))
	if err != nil {
		fail("load dataset", err)
	}
	rows, err = benchRows(rows, splitName, strategyKey)
	if err != nil {
		fail("transform vectors", err)
	}
	dim, err := dataset.Dimension(rows)
	if err != nil {
		fail("load dataset", err)
	}
	strategy, err := backend.NewStrategy(strategyKey, dim, hits)
	if err != nil {
		fail("parse flags", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	backendURL := firstNonEmpty(*url, cfg.Backend.URL)
	if *local {
		srv, addr, err := startLocalBackend(logger)
		if err != nil {
			fail("start local backend", err)
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer stopCancel()
			_ = srv.Stop(stopCtx)
		}()
		backendURL = addr
	}
	client := backend.NewClient(backend.ClientConfig{
		URL:                backendURL,
		Username:           cfg.Backend.Username,
		Password:           cfg.Backend.Password,
		InsecureSkipVerify: cfg.Backend.InsecureSkipVerify,
		Timeout:            cfg.Backend.Timeout,
	}, backend.WithLogger(logger))

	reg := prometheus.NewRegistry()
	observer, err := executor.NewPrometheusObserver(reg)
	if err != nil {
		fail("register metrics", err)
	}
	if addr := firstNonEmpty(*metricsAddr, cfg.Metrics.Addr); addr != "" {
		serveMetrics(addr, reg, logger)
	}

	opts, err := executorOptions(&cfg.Executor, logger)
	if err != nil {
		fail("parse executor config", err)
	}
	name := firstNonEmpty(*indexName, cfg.Backend.IndexName, "hyoka-"+uuid.NewString()[:8])
	ex := executor.New(client, name, append(opts, executor.WithObserver(observer))...)

	if err := ex.CreateIndex(ctx, strategy.IndexOptions); err != nil {
		fail("create index", err)
	}
	if err := ex.IndexDocuments(ctx, dataset.GroupByQuery(rows), strategy.Formatter); err != nil {
		fail("index documents", err)
	}
	queries, _ := dataset.Split(rows)
	outcomes, queryErr := ex.RunQueries(ctx, queries, hits, strategy.Formatter)
	if queryErr != nil && !executor.IsBatchError(queryErr) {
		fail("run queries", queryErr)
	}

	res, err := harness.New(harness.WithLogger(logger)).EvaluateOutcomes(strategy.Name, rows, outcomes, cutoff)
	if err != nil {
		fail("evaluate", err)
	}
	if *save {
		saver := newRunSaver(e)
		defer saver.Close()
		params := map[string]string{
			"strategy":    strategy.Name,
			"index":       name,
			"size":        strconv.Itoa(hits),
			"split":       splitName,
			"concurrency": strconv.Itoa(ex.Concurrency()),
			"dataset":     path,
		}
		run, err := saver.saveResult(ctx, res, models.RunModeBackend, params, outcomes)
		if err != nil {
			fail("save run", err)
		}
		fmt.Printf("Run: %s\n", run.ID)
	}
	if err := cli.WriteEvaluation(os.Stdout, res, e.format); err != nil {
		fail("write output", err)
	}
	if queryErr != nil {
		fail("run queries", queryErr)
	}
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	common := addCommonFlags(fs)
	host := fs.String("host", "", "listen host; defaults to server.host")
	port := fs.Int("port", 0, "listen port; defaults to server.port")
	_ = fs.Parse(args)

	e := setup(common)
	defer e.logger.Sync()
	cfg := e.cfg
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	srv := server.NewServer(&cfg.Server, e.logger)
	ctx, cancel := signalContext()
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fail("serve", err)
		}
		return
	case <-ctx.Done():
	}

	e.logger.Info("Shutting down...")
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := srv.Stop(stopCtx); err != nil {
		fail("stop server", err)
	}
}
