package executor

import (
	"sync/atomic"
	"time"
)

// Progress is a point-in-time view of a running batch.
type Progress struct {
	Op      string
	Total   int
	Done    int
	Failed  int
	Elapsed time.Duration
}

// Pending is the number of operations not yet finished.
func (p Progress) Pending() int {
	return p.Total - p.Done
}

// ProgressFunc receives snapshots while a batch runs. It is called from worker
// goroutines and must not block.
type ProgressFunc func(Progress)

type tracker struct {
	op     string
	total  int
	every  int
	start  time.Time
	done   atomic.Int64
	failed atomic.Int64
	report ProgressFunc
}

func newTracker(op string, total, every int, report ProgressFunc) *tracker {
	if every <= 0 {
		every = 1
	}
	return &tracker{op: op, total: total, every: every, start: time.Now(), report: report}
}

func (t *tracker) finish(err error) {
	if err != nil {
		t.failed.Add(1)
	}
	n := t.done.Add(1)
	if t.report != nil && (int(n)%t.every == 0 || int(n) == t.total) {
		t.report(t.snapshot())
	}
}

func (t *tracker) snapshot() Progress {
	return Progress{
		Op:      t.op,
		Total:   t.total,
		Done:    int(t.done.Load()),
		Failed:  int(t.failed.Load()),
		Elapsed: time.Since(t.start),
	}
}
