package memory

import (
	"storecore/pkg/dberror"
	"storecore/pkg/logging"
	"storecore/pkg/storage/page"

	"go.uber.org/zap"
)

// evictPage removes the least recently accessed clean page. Dirty pages are
// never candidates. The victim goes through the flush path like any other
// page leaving the pool, and a flush failure aborts the eviction.
// Must be called with bp.mutex held.
func (bp *BufferPool) evictPage() error {
	var victim *page.Page
	bp.cache.OldestFirst(func(p *page.Page) bool {
		if _, dirty := p.IsDirty(); dirty {
			return true
		}
		victim = p
		return false
	})

	if victim == nil {
		bp.metrics.EvictionFailures.Inc()
		bp.log.Error("eviction failed: every cached page is dirty",
			zap.Int("resident", bp.cache.Size()), zap.Int("dirty", bp.dirtyCountLocked()))
		return dberror.Detailed(dberror.ErrEvictionExhausted, "", "GetPage", "BufferPool")
	}

	if err := bp.flushPage(victim); err != nil {
		bp.metrics.EvictionFailures.Inc()
		bp.log.Error("eviction flush failed", append(logging.PageFields(victim.ID()), zap.Error(err))...)
		return err
	}

	bp.cache.Remove(victim.ID())
	bp.stats.evictions.Add(1)
	bp.metrics.Evictions.Inc()
	bp.log.Debug("evicted page", logging.PageFields(victim.ID())...)
	return nil
}
