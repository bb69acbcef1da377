// Package executor runs batches of backend operations under a fixed concurrency bound.
//
// An Executor holds N permits. Every bulk upsert and every search acquires one permit
// before it starts and releases it when it returns, so no more than N operations are
// ever in flight against the backend at once.
package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyperjump/hyoka/internal/backend"
	"github.com/hyperjump/hyoka/internal/evalerr"
	"github.com/hyperjump/hyoka/internal/models"
	"github.com/hyperjump/hyoka/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// FailurePolicy decides what happens to a batch when one operation fails.
type FailurePolicy int

const (
	// FailFast cancels operations that have not started yet and returns the first error.
	FailFast FailurePolicy = iota
	// Isolate runs every operation and reports failures per operation.
	Isolate
)

func (p FailurePolicy) String() string {
	switch p {
	case FailFast:
		return "fail_fast"
	case Isolate:
		return "isolate"
	}
	return fmt.Sprintf("FailurePolicy(%d)", int(p))
}

// ParseFailurePolicy accepts "fail_fast" or "isolate" (case-insensitive, '-' allowed).
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "fail_fast", "failfast":
		return FailFast, nil
	case "isolate":
		return Isolate, nil
	}
	return 0, fmt.Errorf("unknown failure policy %q (want fail_fast or isolate)", s)
}

// BatchError summarises a batch in which some operations failed.
type BatchError struct {
	Op     string
	Failed int
	Total  int
	First  error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s: %d of %d operations failed, first: %v", e.Op, e.Failed, e.Total, e.First)
}

func (e *BatchError) Unwrap() error { return e.First }

// Executor issues index and search operations against one backend index.
type Executor struct {
	backend       backend.Backend
	index         string
	concurrency   int
	indexPolicy   FailurePolicy
	queryPolicy   FailurePolicy
	limiter       *rate.Limiter
	observer      Observer
	progress      ProgressFunc
	progressEvery int
	logger        *zap.Logger

	current atomic.Pointer[tracker]
}

// Option configures an Executor.
type Option func(*Executor)

// WithConcurrency sets the number of permits. Values below 1 keep the default.
func WithConcurrency(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithIndexPolicy sets the failure policy for IndexDocuments.
func WithIndexPolicy(p FailurePolicy) Option {
	return func(e *Executor) { e.indexPolicy = p }
}

// WithQueryPolicy sets the failure policy for RunQueries.
func WithQueryPolicy(p FailurePolicy) Option {
	return func(e *Executor) { e.queryPolicy = p }
}

// WithRateLimit caps operation starts per second on top of the concurrency bound.
// Zero or negative disables the limit.
func WithRateLimit(perSecond float64) Option {
	return func(e *Executor) {
		if perSecond > 0 {
			burst := int(perSecond)
			if burst < 1 {
				burst = 1
			}
			e.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		} else {
			e.limiter = nil
		}
	}
}

// WithObserver adds an observer. It may be given more than once.
func WithObserver(o Observer) Option {
	return func(e *Executor) {
		if o == nil {
			return
		}
		if m, ok := e.observer.(multiObserver); ok {
			e.observer = append(m, o)
			return
		}
		if _, ok := e.observer.(NoopObserver); ok {
			e.observer = o
			return
		}
		e.observer = multiObserver{e.observer, o}
	}
}

// WithProgress reports a snapshot every `every` finished operations and at the end of each batch.
func WithProgress(every int, fn ProgressFunc) Option {
	return func(e *Executor) {
		e.progressEvery = every
		e.progress = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Executor) { e.logger = utils.OrNop(l) }
}

// New creates an Executor for index on b. Defaults: runtime.NumCPU() permits,
// FailFast for indexing, Isolate for queries, no rate limit.
func New(b backend.Backend, index string, opts ...Option) *Executor {
	e := &Executor{
		backend:     b,
		index:       index,
		concurrency: runtime.NumCPU(),
		indexPolicy: FailFast,
		queryPolicy: Isolate,
		observer:    NoopObserver{},
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Concurrency returns the number of permits.
func (e *Executor) Concurrency() int { return e.concurrency }

// Index returns the backend index name.
func (e *Executor) Index() string { return e.index }

// Progress returns a snapshot of the batch currently running, or of the last one.
func (e *Executor) Progress() Progress {
	t := e.current.Load()
	if t == nil {
		return Progress{}
	}
	return t.snapshot()
}

// CreateIndex drops the index if it exists and creates it with options.
func (e *Executor) CreateIndex(ctx context.Context, options map[string]any) error {
	return e.observe(OpCreateIndex, func() (int, error) {
		exists, err := e.backend.IndexExists(ctx, e.index)
		if err != nil {
			return 0, err
		}
		if exists {
			e.logger.Info("Deleting existing index", zap.String("index", e.index))
			if err := e.backend.DeleteIndex(ctx, e.index); err != nil {
				return 0, err
			}
		}
		return 0, e.backend.CreateIndex(ctx, e.index, options)
	})
}

// IndexDocuments upserts each group with one bulk call, then refreshes the index so
// the documents are visible to searches. Groups run in no particular order.
// Under FailFast the first failure cancels groups not yet started and the refresh is skipped.
// Under Isolate every group runs, the refresh still happens, and a *BatchError is returned
// if any group failed.
func (e *Executor) IndexDocuments(ctx context.Context, groups [][]models.Document, f backend.Formatter) error {
	if f == nil {
		return evalerr.Invalid("formatter", "must not be nil")
	}
	start := time.Now()
	docs := 0
	for _, g := range groups {
		docs += len(g)
	}
	e.logger.Info("Indexing documents",
		zap.String("index", e.index),
		zap.Int("groups", len(groups)),
		zap.Int("documents", docs),
		zap.Int("concurrency", e.concurrency),
		zap.Stringer("policy", e.indexPolicy))

	errs := make([]error, len(groups))
	err := e.run(ctx, OpBulk, len(groups), e.indexPolicy, func(ctx context.Context, i int) error {
		group := groups[i]
		if len(group) == 0 {
			return nil
		}
		batch := make([]backend.BulkDocument, len(group))
		for j, d := range group {
			batch[j] = backend.BulkDocument{ID: d.ID, Body: f.FormatDocument(d)}
		}
		errs[i] = e.observe(OpBulk, func() (int, error) {
			return len(batch), e.backend.Bulk(ctx, e.index, batch)
		})
		return errs[i]
	})
	if err != nil && e.indexPolicy == FailFast {
		return err
	}

	if rerr := e.observe(OpRefresh, func() (int, error) {
		return 0, e.backend.Refresh(ctx, e.index)
	}); rerr != nil {
		return rerr
	}
	if batchErr := summarise(OpBulk, errs); batchErr != nil {
		return batchErr
	}
	if err != nil {
		return err
	}
	e.logger.Info("Indexed documents",
		zap.String("index", e.index),
		zap.Int("documents", docs),
		zap.Duration("took", time.Since(start)))
	return nil
}

// RunQueries searches once per query with the body f builds, asking for size hits.
// Outcomes are returned in query order. Under Isolate every query runs and failures are
// recorded on the outcome; a *BatchError is returned alongside the full outcome slice when
// any query failed. Under FailFast the first failure cancels pending queries, whose
// outcomes carry the cancellation error.
func (e *Executor) RunQueries(ctx context.Context, queries []models.Query, size int, f backend.Formatter) ([]models.QueryOutcome, error) {
	if f == nil {
		return nil, evalerr.Invalid("formatter", "must not be nil")
	}
	if size <= 0 {
		return nil, evalerr.Invalid("size", "must be positive, got %d", size)
	}
	e.logger.Info("Running queries",
		zap.String("index", e.index),
		zap.Int("queries", len(queries)),
		zap.Int("size", size),
		zap.Int("concurrency", e.concurrency),
		zap.Stringer("policy", e.queryPolicy))

	outcomes := make([]models.QueryOutcome, len(queries))
	started := make([]bool, len(queries))
	for i, q := range queries {
		outcomes[i].QueryID = q.ID
	}
	err := e.run(ctx, OpSearch, len(queries), e.queryPolicy, func(ctx context.Context, i int) error {
		out := &outcomes[i]
		started[i] = true
		body := backend.SearchBody(size, f.FormatQuery(queries[i]))
		start := time.Now()
		out.Err = e.observe(OpSearch, func() (int, error) {
			resp, err := e.backend.Search(ctx, e.index, body)
			if err != nil {
				return 0, err
			}
			out.Took = time.Duration(resp.Took) * time.Millisecond
			out.Hits = resp.Hits.Total.Value
			out.Documents = make([]models.ScoredDocument, len(resp.Hits.Hits))
			for j, h := range resp.Hits.Hits {
				out.Documents[j] = models.ScoredDocument{DocumentID: h.ID, Score: h.Score}
			}
			return out.Hits, nil
		})
		out.Latency = time.Since(start)
		if out.Err != nil {
			e.logger.Debug("Query failed", zap.String("query_id", out.QueryID), zap.Error(out.Err))
		}
		return out.Err
	})

	// Queries that never started carry the reason they were skipped.
	if err != nil {
		for i := range outcomes {
			if !started[i] {
				outcomes[i].Err = err
			}
		}
	}
	if e.queryPolicy == FailFast && err != nil {
		return outcomes, err
	}
	errs := make([]error, len(outcomes))
	for i := range outcomes {
		errs[i] = outcomes[i].Err
	}
	if batchErr := summarise(OpSearch, errs); batchErr != nil {
		return outcomes, batchErr
	}
	return outcomes, err
}

// run calls fn for i in [0, n) with at most e.concurrency calls in flight.
// Under FailFast the first error cancels the shared context before its permit is
// released, so no further call starts, and that error is returned.
// Under Isolate fn errors are left to the caller and only a parent cancellation is returned.
func (e *Executor) run(ctx context.Context, op string, n int, policy FailurePolicy, fn func(ctx context.Context, i int) error) error {
	t := newTracker(op, n, e.progressEvery, e.progress)
	e.current.Store(t)

	gctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sem := semaphore.NewWeighted(int64(e.concurrency))
	var (
		g        errgroup.Group
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	launched := 0
	for i := range n {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		launched++
		g.Go(func() error {
			err := e.wait(gctx)
			if err == nil {
				err = fn(gctx, i)
			}
			t.finish(err)
			if err != nil && policy == FailFast {
				fail(err)
			}
			sem.Release(1)
			return nil
		})
	}
	_ = g.Wait()

	err := firstErr
	if err == nil {
		err = ctx.Err()
	}
	if launched < n {
		e.logger.Warn("Batch stopped early",
			zap.String("op", op),
			zap.Int("started", launched),
			zap.Int("total", n),
			zap.Error(err))
	}
	return err
}

func (e *Executor) wait(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	return e.limiter.Wait(ctx)
}

// observe wraps one backend call with observer callbacks.
func (e *Executor) observe(op string, call func() (int, error)) error {
	e.observer.OnStart(op)
	start := time.Now()
	n, err := call()
	e.observer.OnFinish(op, time.Since(start), n, err)
	return err
}

func summarise(op string, errs []error) *BatchError {
	var be *BatchError
	for _, err := range errs {
		if err == nil {
			continue
		}
		if be == nil {
			be = &BatchError{Op: op, Total: len(errs), First: err}
		}
		be.Failed++
	}
	return be
}

// IsBatchError reports whether err is a partial-failure summary.
func IsBatchError(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}
