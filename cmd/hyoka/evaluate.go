package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/hyperjump/hyoka/internal/cli"
	"github.com/hyperjump/hyoka/internal/config"
	"github.com/hyperjump/hyoka/internal/dataset"
	"github.com/hyperjump/hyoka/internal/harness"
	"github.com/hyperjump/hyoka/internal/models"
	"github.com/hyperjump/hyoka/internal/vector"
)

// Vector transforms selectable on evaluate and score.
const (
	transformNone   = "none"
	transformInt8   = "int8"
	transformRotate = "rotate"
)

// applyTransform returns rows with both vector columns transformed. int8 is
// calibrated on the train split title vectors of rows.
func applyTransform(rows []models.Row, name string, cfg *config.TransformConfig) ([]models.Row, error) {
	switch name {
	case transformNone, "":
		return rows, nil
	case transformInt8:
		_, docs := dataset.Split(dataset.FilterSplit(rows, models.SplitTrain))
		return dataset.QuantizeRows(rows, dataset.TitleVectors(docs))
	case transformRotate:
		return dataset.RotateRows(rows, cfg.Seed, cfg.RotateOutputDim)
	}
	return nil, fmt.Errorf("unknown transform %q (supported: none, int8, rotate)", name)
}

// indexOptions maps the index config section onto vector.Options for family.
func indexOptions(cfg *config.Config, family vector.Family, dim int) vector.Options {
	opts := vector.DefaultOptions(family, dim)
	opts.NList = cfg.Index.NList
	opts.NProbe = cfg.Index.NProbe
	opts.LSHBits = cfg.Index.LSHBits
	opts.M = cfg.Index.HNSWM
	opts.EfConstruction = cfg.Index.EfConstruction
	opts.EfSearch = cfg.Index.EfSearch
	opts.Seed = cfg.Index.Seed
	opts.KMeansIters = cfg.Transform.KMeansIterations
	return opts
}

// families resolves the --family flag. "all" selects every family.
func families(name string) ([]vector.Family, error) {
	if name == "all" {
		return vector.Families(), nil
	}
	for _, f := range vector.Families() {
		if string(f) == name {
			return []vector.Family{f}, nil
		}
	}
	return nil, fmt.Errorf("unknown index family %q (supported: flat, sq8, lsh, ivfflat, hnsw, all)", name)
}

func runEvaluate(args []string) {
	fs := flag.NewFlagSet("evaluate", flag.ExitOnError)
	common := addCommonFlags(fs)
	datasetPath := fs.String("dataset", "", "vectorized dataset (JSON lines); defaults to evaluation.dataset_path")
	family := fs.String("family", "", "index family: flat, sq8, lsh, ivfflat, hnsw or all; defaults to index.family")
	k := fs.Int("k", 0, "cutoff for search and nDCG; defaults to evaluation.k")
	split := fs.String("split", "", "split to evaluate; defaults to evaluation.split")
	transformName := fs.String("transform", transformNone, "vector transform: none, int8 or rotate")
	save := fs.Bool("save", true, "save the run to the run database")
	_ = fs.Parse(args)

	e := setup(common)
	defer e.logger.Sync()
	cfg := e.cfg
	path := firstNonEmpty(*datasetPath, cfg.Evaluation.DatasetPath)
	cutoff := firstPositive(*k, cfg.Evaluation.K)
	splitName := firstNonEmpty(*split, cfg.Evaluation.Split)

	fams, err := families(firstNonEmpty(*family, cfg.Index.Family))
	if err != nil {
		fail("parse flags", err)
	}
	rows, err := dataset.Load(path, dataset.StageVectorize)
	if err != nil {
		fail("load dataset", err)
	}
	rows, err = applyTransform(rows, *transformName, &cfg.Transform)
	if err != nil {
		fail("transform vectors", err)
	}
	dim, err := dataset.Dimension(rows)
	if err != nil {
		fail("load dataset", err)
	}
	evalRows := dataset.FilterSplit(rows, splitName)

	ctx, cancel := signalContext()
	defer cancel()
	h := harness.New(harness.WithLogger(e.logger))
	var saver *runSaver
	if *save {
		saver = newRunSaver(e)
		defer saver.Close()
	}

	for _, fam := range fams {
		idx, err := vector.NewIndex(indexOptions(cfg, fam, dim))
		if err != nil {
			fail("create index", err)
		}
		if err := h.Train(ctx, idx, rows); err != nil {
			fail("train index", err)
		}
		res, err := h.Evaluate(ctx, idx, evalRows, cutoff, vector.ReturnsDistance(idx))
		if err != nil {
			fail("evaluate", err)
		}
		if saver != nil {
			params := map[string]string{
				"family":    string(fam),
				"split":     splitName,
				"transform": *transformName,
				"dataset":   path,
			}
			if _, err := saver.saveResult(ctx, res, models.RunModeIndex, params, nil); err != nil {
				fail("save run", err)
			}
		}
		if err := cli.WriteEvaluation(os.Stdout, res, e.format); err != nil {
			fail("write output", err)
		}
	}
}

func runScore(args []string) {
	fs := flag.NewFlagSet("score", flag.ExitOnError)
	common := addCommonFlags(fs)
	datasetPath := fs.String("dataset", "", "vectorized dataset (JSON lines); defaults to evaluation.dataset_path")
	k := fs.Int("k", 0, "nDCG cutoff; defaults to evaluation.k")
	split := fs.String("split", "", "split to score; defaults to evaluation.split")
	transformName := fs.String("transform", transformNone, "vector transform: none, int8 or rotate")
	save := fs.Bool("save", true, "save the run to the run database")
	_ = fs.Parse(args)

	e := setup(common)
	defer e.logger.Sync()
	cfg := e.cfg
	path := firstNonEmpty(*datasetPath, cfg.Evaluation.DatasetPath)
	splitName := firstNonEmpty(*split, cfg.Evaluation.Split)

	rows, err := dataset.Load(path, dataset.StageVectorize)
	if err != nil {
		fail("load dataset", err)
	}
	rows, err = applyTransform(rows, *transformName, &cfg.Transform)
	if err != nil {
		fail("transform vectors", err)
	}
	res, err := harness.New(harness.WithLogger(e.logger)).EvaluatePairwise(dataset.FilterSplit(rows, splitName), firstPositive(*k, cfg.Evaluation.K))
	if err != nil {
		fail("score", err)
	}
	if *save {
		saver := newRunSaver(e)
		defer saver.Close()
		params := map[string]string{"split": splitName, "transform": *transformName, "dataset": path}
		if _, err := saver.saveResult(context.Background(), res, models.RunModePairwise, params, nil); err != nil {
			fail("save run", err)
		}
	}
	if err := cli.WriteEvaluation(os.Stdout, res, e.format); err != nil {
		fail("write output", err)
	}
}

func runFuse(args []string) {
	fs := flag.NewFlagSet("fuse", flag.ExitOnError)
	common := addCommonFlags(fs)
	pathA := fs.String("a", "", "first vectorized dataset")
	pathB := fs.String("b", "", "second vectorized dataset with the same rows, e.g. from another model")
	lexical := fs.Bool("lexical", false, "fuse cosine of -a with title term matches instead of a second dataset")
	k := fs.Int("k", 0, "nDCG cutoff; defaults to evaluation.k")
	split := fs.String("split", "", "split to score; defaults to evaluation.split")
	_ = fs.Parse(args)

	if *pathA == "" || (*pathB == "" && !*lexical) {
		fmt.Println("Usage: hyoka fuse -a <dataset> (-b <dataset> | -lexical) [flags]")
		os.Exit(1)
	}
	e := setup(common)
	defer e.logger.Sync()
	splitName := firstNonEmpty(*split, e.cfg.Evaluation.Split)

	cutoff := firstPositive(*k, e.cfg.Evaluation.K)
	h := harness.New(harness.WithLogger(e.logger))

	a, err := dataset.Load(*pathA, dataset.StageVectorize)
	if err != nil {
		fail("load dataset", err)
	}
	var results []*harness.Result
	if *lexical {
		results, err = h.EvaluateLexicalFusion(a, splitName, cutoff)
	} else {
		b, loadErr := dataset.Load(*pathB, dataset.StageVectorize)
		if loadErr != nil {
			fail("load dataset", loadErr)
		}
		results, err = h.EvaluateFusion(dataset.FilterSplit(a, splitName), dataset.FilterSplit(b, splitName), cutoff)
	}
	if err != nil {
		fail("fuse scores", err)
	}
	for _, res := range results {
		if err := cli.WriteEvaluation(os.Stdout, res, e.format); err != nil {
			fail("write output", err)
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
