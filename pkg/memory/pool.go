package memory

import (
	"sync"
	"time"

	"storecore/pkg/concurrency/lock"
	"storecore/pkg/config"
	"storecore/pkg/logging"
	"storecore/pkg/metrics"
	"storecore/pkg/primitives"
	"storecore/pkg/storage/page"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Catalog resolves a table to the page-store holding its pages.
type Catalog interface {
	GetDbFile(tableID primitives.TableID) (page.DbFile, error)
}

// LogFile is the write-ahead log as the pool uses it.
type LogFile interface {
	LogWrite(tid primitives.TransactionID, pid primitives.PageID, before, after []byte) (primitives.LSN, error)
	Force() error
}

// Options configure a BufferPool. Zero values take the defaults from
// package config.
type Options struct {
	MaxPages          int
	LockTimeout       time.Duration
	PollInterval      time.Duration
	DeadlockDetection bool

	// Registerer receives the pool and lock-wait metrics. Nil disables them.
	Registerer prometheus.Registerer
}

// OptionsFromConfig builds Options from a loaded configuration.
func OptionsFromConfig(cfg *config.Configuration, reg prometheus.Registerer) Options {
	return Options{
		MaxPages:          cfg.BufferPool.MaxPages,
		LockTimeout:       cfg.LockTimeout(),
		PollInterval:      cfg.PollInterval(),
		DeadlockDetection: cfg.Lock.DeadlockDetection,
		Registerer:        reg,
	}
}

func (o Options) withDefaults() Options {
	def := config.Default()
	if o.MaxPages <= 0 {
		o.MaxPages = def.BufferPool.MaxPages
	}
	if o.LockTimeout <= 0 {
		o.LockTimeout = def.LockTimeout()
	}
	if o.PollInterval <= 0 {
		o.PollInterval = def.PollInterval()
	}
	return o
}

// BufferPool caches up to MaxPages pages and mediates every transactional
// page access. It is safe for concurrent use.
type BufferPool struct {
	opts        Options
	catalog     Catalog
	wal         LogFile
	lockManager *lock.LockManager

	// mutex guards cache and dirtyPages; each mutating operation on them is
	// one critical section.
	mutex      sync.Mutex
	cache      *LRUPageCache
	dirtyPages map[primitives.TransactionID]map[primitives.PageID]struct{}

	stats       poolCounters
	metrics     *metrics.PoolMetrics
	lockMetrics *metrics.LockMetrics
	log         *zap.Logger
}

var _ page.Source = (*BufferPool)(nil)

// NewBufferPool creates a pool reading and writing pages through catalog and
// logging commits to wal.
func NewBufferPool(catalog Catalog, wal LogFile, opts Options) *BufferPool {
	opts = opts.withDefaults()
	return &BufferPool{
		opts:        opts,
		catalog:     catalog,
		wal:         wal,
		lockManager: lock.NewLockManager(),
		cache:       NewLRUPageCache(),
		dirtyPages:  make(map[primitives.TransactionID]map[primitives.PageID]struct{}),
		metrics:     metrics.NewPoolMetrics(opts.Registerer),
		lockMetrics: metrics.NewLockMetrics(opts.Registerer),
		log:         logging.WithComponent("BufferPool"),
	}
}

// MaxPages is the pool capacity.
func (bp *BufferPool) MaxPages() int {
	return bp.opts.MaxPages
}

// LockManager exposes the pool's lock manager for introspection.
func (bp *BufferPool) LockManager() *lock.LockManager {
	return bp.lockManager
}

// GetPage returns the page pid on behalf of tid, first acquiring a shared
// lock for ReadOnly or an exclusive lock for ReadWrite. If the lock cannot be
// obtained within the lock timeout the call fails with
// dberror.ErrTransactionAborted and the caller must abort tid.
//
// On a miss the page is read from its page-store, evicting the least recently
// used clean page first if the pool is full.
func (bp *BufferPool) GetPage(tid primitives.TransactionID, pid primitives.PageID, perm primitives.Permissions) (*page.Page, error) {
	if err := bp.acquireLock(tid, pid, lock.LockTypeFor(perm)); err != nil {
		return nil, err
	}

	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	if p, ok := bp.cache.Get(pid); ok {
		bp.stats.hits.Add(1)
		bp.metrics.Hits.Inc()
		return p, nil
	}

	bp.stats.misses.Add(1)
	bp.metrics.Misses.Inc()

	dbFile, err := bp.catalog.GetDbFile(pid.GetTableID())
	if err != nil {
		return nil, err
	}

	if bp.cache.Size() >= bp.opts.MaxPages {
		if err := bp.evictPage(); err != nil {
			return nil, err
		}
	}

	p, err := dbFile.ReadPage(pid)
	if err != nil {
		bp.log.Warn("page read failed", append(logging.PageFields(pid), zap.Error(err))...)
		return nil, err
	}

	bp.cache.Put(p)
	bp.metrics.ResidentPages.Set(float64(bp.cache.Size()))
	return p, nil
}

// Release drops tid's lock on pid before the transaction ends. This breaks
// two-phase locking and is only safe for pages tid has not modified.
func (bp *BufferPool) Release(tid primitives.TransactionID, pid primitives.PageID) {
	bp.lockManager.Release(pid, tid)
}

// HoldsLock reports whether tid holds any lock on pid.
func (bp *BufferPool) HoldsLock(tid primitives.TransactionID, pid primitives.PageID) bool {
	return bp.lockManager.Holds(pid, tid)
}

// Discard drops pid from the cache without writing it, e.g. after recovery
// rolled the page back on disk.
func (bp *BufferPool) Discard(pid primitives.PageID) {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	if p, ok := bp.cache.Peek(pid); ok {
		if dirtier, dirty := p.IsDirty(); dirty {
			bp.forgetDirty(dirtier, pid)
		}
	}
	bp.cache.Remove(pid)
	bp.metrics.ResidentPages.Set(float64(bp.cache.Size()))
}

// Close empties the cache. Dirty pages are dropped, not written; the log and
// the catalog belong to the caller and stay open.
func (bp *BufferPool) Close() error {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	if n := bp.dirtyCountLocked(); n > 0 {
		bp.log.Warn("closing pool with uncommitted pages",
			zap.Int("dirty_pages", n), zap.Int("transactions", len(bp.dirtyPages)))
	}
	bp.cache.Clear()
	bp.dirtyPages = make(map[primitives.TransactionID]map[primitives.PageID]struct{})
	bp.metrics.ResidentPages.Set(0)
	bp.metrics.DirtyPages.Set(0)
	return nil
}
