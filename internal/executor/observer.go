package executor

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation names reported to an Observer.
const (
	OpCreateIndex = "create_index"
	OpBulk        = "bulk"
	OpRefresh     = "refresh"
	OpSearch      = "search"
)

// Observer receives one callback per backend operation the executor issues.
// Implementations must be safe for concurrent use.
type Observer interface {
	// OnStart is called once a permit is held and the operation is about to run.
	OnStart(op string)
	// OnFinish is called when the operation returns. hits is the total hit count
	// for searches and the document count for bulks.
	OnFinish(op string, d time.Duration, hits int, err error)
}

// NoopObserver discards all callbacks.
type NoopObserver struct{}

// OnStart does nothing.
func (NoopObserver) OnStart(string) {}

// OnFinish does nothing.
func (NoopObserver) OnFinish(string, time.Duration, int, error) {}

// CountingObserver tracks in-flight and peak concurrency with atomics.
type CountingObserver struct {
	inFlight atomic.Int64
	peak     atomic.Int64
	calls    atomic.Int64
	errors   atomic.Int64
}

// OnStart counts op as in flight and raises the peak if needed.
func (o *CountingObserver) OnStart(string) {
	n := o.inFlight.Add(1)
	for {
		p := o.peak.Load()
		if n <= p || o.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

// OnFinish counts a finished call, and a failure when err is set.
func (o *CountingObserver) OnFinish(_ string, _ time.Duration, _ int, err error) {
	o.inFlight.Add(-1)
	o.calls.Add(1)
	if err != nil {
		o.errors.Add(1)
	}
}

// Peak returns the highest number of operations observed running at once.
func (o *CountingObserver) Peak() int64 { return o.peak.Load() }

// Calls returns the number of finished operations.
func (o *CountingObserver) Calls() int64 { return o.calls.Load() }

// Errors returns the number of finished operations that failed.
func (o *CountingObserver) Errors() int64 { return o.errors.Load() }

// PrometheusObserver exports executor activity as Prometheus metrics.
type PrometheusObserver struct {
	opLatency *prometheus.HistogramVec
	inFlight  prometheus.Gauge
	hits      *prometheus.CounterVec
}

// NewPrometheusObserver creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusObserver(reg prometheus.Registerer) (*PrometheusObserver, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &PrometheusObserver{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hyoka_backend_operation_latency_seconds",
			Help:    "Latency of backend operations issued by the executor",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "status"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hyoka_backend_operations_in_flight",
			Help: "Backend operations currently holding a concurrency permit",
		}),
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hyoka_backend_hits_total",
			Help: "Documents written by bulks and total hits reported by searches",
		}, []string{"op"}),
	}
	for _, c := range []prometheus.Collector{o.opLatency, o.inFlight, o.hits} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// OnStart raises the in-flight gauge.
func (o *PrometheusObserver) OnStart(string) {
	o.inFlight.Inc()
}

// OnFinish lowers the in-flight gauge, observes latency by op and status, and adds
// the hits of successful operations.
func (o *PrometheusObserver) OnFinish(op string, d time.Duration, hits int, err error) {
	o.inFlight.Dec()
	status := "success"
	if err != nil {
		status = "error"
	}
	o.opLatency.WithLabelValues(op, status).Observe(d.Seconds())
	if err == nil && hits > 0 {
		o.hits.WithLabelValues(op).Add(float64(hits))
	}
}

// multiObserver fans callbacks out to several observers.
type multiObserver []Observer

func (m multiObserver) OnStart(op string) {
	for _, o := range m {
		o.OnStart(op)
	}
}

func (m multiObserver) OnFinish(op string, d time.Duration, hits int, err error) {
	for _, o := range m {
		o.OnFinish(op, d, hits, err)
	}
}
