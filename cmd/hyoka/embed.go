package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/hyoka/internal/cli"
	"github.com/hyperjump/hyoka/internal/dataset"
	"github.com/hyperjump/hyoka/internal/embedding"
	"github.com/hyperjump/hyoka/internal/harness"
)

func runVectorize(args []string) {
	fs := flag.NewFlagSet("vectorize", flag.ExitOnError)
	common := addCommonFlags(fs)
	in := fs.String("dataset", "", "labelled rows with query and product_title text (JSON lines)")
	out := fs.String("out", "", "output path; defaults to evaluation.dataset_path")
	dim := fs.Int("dim", 64, "embedding dimensions")
	batch := fs.Int("batch", embedding.DefaultBatchSize, "texts per embedding batch")
	cacheSize := fs.Int("cache", 10000, "embedding cache capacity")
	embed := fs.Bool("embed", true, "compute query and title vectors; disable to only add hashes or centroids")
	hash := fs.Bool("hash", false, "add query_hash and title_hash")
	centroids := fs.Bool("centroids", false, "add query_centroids and title_centroids")
	_ = fs.Parse(args)

	if *in == "" {
		fmt.Println("Usage: hyoka vectorize -dataset <rows.jsonl> [flags]")
		os.Exit(1)
	}
	e := setup(common)
	defer e.logger.Sync()
	cfg := e.cfg
	target := firstNonEmpty(*out, cfg.Evaluation.DatasetPath)

	f, err := os.Open(*in)
	if err != nil {
		fail("open dataset", err)
	}
	rows, err := dataset.Read(f)
	_ = f.Close()
	if err != nil {
		fail("read dataset", err)
	}

	ctx, cancel := signalContext()
	defer cancel()
	if *embed {
		embedder := embedding.NewCachedEmbedder(embedding.NewMockEmbedder(*dim), *cacheSize)
		defer embedder.Close()
		rows, err = embedding.VectorizeRows(ctx, embedder, rows, *batch)
		if err != nil {
			fail("vectorize", err)
		}
		stats := embedder.Stats()
		e.logger.Debug("Embedding cache",
			zap.Int64("hits", stats.Hits),
			zap.Int64("misses", stats.Misses),
			zap.Int("entries", stats.Entries))
	}
	if *hash {
		rows, err = dataset.HashRows(rows, cfg.Transform.Seed, cfg.Transform.HashDim)
		if err != nil {
			fail("hash vectors", err)
		}
	}
	if *centroids {
		c, err := dataset.TrainCentroids(rows, cfg.Transform.Centroids, cfg.Transform.KMeansIterations, cfg.Transform.Seed)
		if err != nil {
			fail("train centroids", err)
		}
		rows, err = dataset.CentroidRows(rows, c, cfg.Transform.CentroidsPerDocument, cfg.Transform.CentroidsPerQuery)
		if err != nil {
			fail("assign centroids", err)
		}
	}
	if err := dataset.Save(target, rows); err != nil {
		fail("save dataset", err)
	}
	e.logger.Info("Vectorized dataset",
		zap.String("path", target),
		zap.Int("rows", len(rows)),
		zap.Bool("hash", *hash),
		zap.Bool("centroids", *centroids))
	fmt.Printf("Wrote %d rows to %s\n", len(rows), target)
}

func runPrecision(args []string) {
	fs := flag.NewFlagSet("precision", flag.ExitOnError)
	common := addCommonFlags(fs)
	itemsPath := fs.String("items", "", "labelled items, one {\"label\": n, \"vector\": [...]} per line")
	queriesPath := fs.String("queries", "", "label query vectors in the same format, one per label")
	labels := fs.String("labels", "", "comma-separated label texts to embed instead of -queries; text i describes label i")
	k := fs.Int("k", 10, "precision cutoff")
	_ = fs.Parse(args)

	if *itemsPath == "" || (*queriesPath == "" && *labels == "") {
		fmt.Println("Usage: hyoka precision -items <items.jsonl> (-queries <queries.jsonl> | -labels <a,b,...>) [flags]")
		os.Exit(1)
	}
	e := setup(common)
	defer e.logger.Sync()
	h := harness.New(harness.WithLogger(e.logger))

	items, err := readLabeledItemsFile(*itemsPath)
	if err != nil {
		fail("read items", err)
	}
	var res *harness.PrecisionResult
	if *queriesPath != "" {
		queries, err := readLabeledItemsFile(*queriesPath)
		if err != nil {
			fail("read queries", err)
		}
		res, err = h.PrecisionFromVectors(labelVectors(queries), items, *k)
		if err != nil {
			fail("compute precision", err)
		}
	} else {
		if len(items) == 0 {
			fail("read items", fmt.Errorf("%s has no items", *itemsPath))
		}
		ctx, cancel := signalContext()
		defer cancel()
		embedder := embedding.NewMockEmbedder(len(items[0].Vector))
		res, err = h.EvaluatePrecision(ctx, embedder, splitLabels(*labels), items, *k)
		if err != nil {
			fail("compute precision", err)
		}
	}

	if e.format == cli.OutputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			fail("write output", err)
		}
		return
	}
	for label, p := range res.PerLabel {
		fmt.Printf("label %d: precision@%d %.03f\n", label, res.K, p)
	}
	fmt.Printf("Mean precision@%d: %.03f\n", res.K, res.Mean)
}

// labeledItemLine is one line of an items or queries file.
type labeledItemLine struct {
	Label  int       `json:"label"`
	Vector []float32 `json:"vector"`
}

func readLabeledItemsFile(path string) ([]harness.LabeledItem, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLabeledItems(f)
}

func readLabeledItems(r io.Reader) ([]harness.LabeledItem, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	var items []harness.LabeledItem
	line := 0
	for scanner.Scan() {
		line++
		b := scanner.Bytes()
		if len(strings.TrimSpace(string(b))) == 0 {
			continue
		}
		var it labeledItemLine
		if err := json.Unmarshal(b, &it); err != nil {
			return nil, fmt.Errorf("decode line %d: %w", line, err)
		}
		items = append(items, harness.LabeledItem{Label: it.Label, Vector: it.Vector})
	}
	return items, scanner.Err()
}

// labelVectors orders query vectors by label so that entry i is the query for label i.
func labelVectors(queries []harness.LabeledItem) [][]float32 {
	sorted := append([]harness.LabeledItem(nil), queries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Label < sorted[j].Label })
	out := make([][]float32, len(sorted))
	for i, q := range sorted {
		out[i] = q.Vector
	}
	return out
}

func splitLabels(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
