// Package metrics exposes Prometheus collectors for the buffer pool and the
// lock manager. Constructors given a nil registerer return no-op collectors,
// so components can record unconditionally.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storecore"

type Counter interface {
	Inc()
	Add(float64)
}

type Gauge interface {
	Set(float64)
	Inc()
	Dec()
}

type Histogram interface {
	Observe(float64)
}

type NoopStat struct{}

func (NoopStat) Inc()            {}
func (NoopStat) Dec()            {}
func (NoopStat) Add(float64)     {}
func (NoopStat) Set(float64)     {}
func (NoopStat) Observe(float64) {}

// PoolMetrics are recorded by the buffer pool.
type PoolMetrics struct {
	Hits             Counter
	Misses           Counter
	Evictions        Counter
	EvictionFailures Counter
	Flushes          Counter
	ResidentPages    Gauge
	DirtyPages       Gauge
}

// LockMetrics are recorded around lock waits.
type LockMetrics struct {
	Waits     Counter
	Timeouts  Counter
	Deadlocks Counter
	WaitTime  Histogram
}

// NewPoolMetrics registers the pool collectors with reg. A nil reg yields no-ops.
func NewPoolMetrics(reg prometheus.Registerer) *PoolMetrics {
	if reg == nil {
		return &PoolMetrics{
			Hits: NoopStat{}, Misses: NoopStat{}, Evictions: NoopStat{},
			EvictionFailures: NoopStat{}, Flushes: NoopStat{},
			ResidentPages: NoopStat{}, DirtyPages: NoopStat{},
		}
	}

	return &PoolMetrics{
		Hits:             newCounter(reg, "pool", "hits_total", "Page requests served from the cache."),
		Misses:           newCounter(reg, "pool", "misses_total", "Page requests that read from the page-store."),
		Evictions:        newCounter(reg, "pool", "evictions_total", "Clean pages evicted to make room."),
		EvictionFailures: newCounter(reg, "pool", "eviction_failures_total", "Evictions that failed because every page was dirty or a flush failed."),
		Flushes:          newCounter(reg, "pool", "flushes_total", "Dirty pages written to the page-store."),
		ResidentPages:    newGauge(reg, "pool", "resident_pages", "Pages currently cached."),
		DirtyPages:       newGauge(reg, "pool", "dirty_pages", "Cached pages carrying uncommitted changes."),
	}
}

// NewLockMetrics registers the lock-wait collectors with reg. A nil reg yields no-ops.
func NewLockMetrics(reg prometheus.Registerer) *LockMetrics {
	if reg == nil {
		return &LockMetrics{Waits: NoopStat{}, Timeouts: NoopStat{}, Deadlocks: NoopStat{}, WaitTime: NoopStat{}}
	}

	waitTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "lock",
		Name:      "wait_seconds",
		Help:      "Time spent waiting for a page lock that was not granted immediately.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
	})
	reg.MustRegister(waitTime)

	return &LockMetrics{
		Waits:     newCounter(reg, "lock", "waits_total", "Lock requests that had to wait."),
		Timeouts:  newCounter(reg, "lock", "timeouts_total", "Lock waits that hit the deadline and aborted the transaction."),
		Deadlocks: newCounter(reg, "lock", "deadlocks_total", "Lock waits ended early by a wait-for cycle."),
		WaitTime:  waitTime,
	}
}

func newCounter(reg prometheus.Registerer, subsystem, name, help string) prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	})
	reg.MustRegister(c)
	return c
}

func newGauge(reg prometheus.Registerer, subsystem, name, help string) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	})
	reg.MustRegister(g)
	return g
}
