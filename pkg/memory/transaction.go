package memory

import (
	"storecore/pkg/logging"
	"storecore/pkg/primitives"

	"go.uber.org/zap"
)

// Commit makes tid's changes durable and ends it. For each page tid dirtied,
// the images are logged and forced, the page is written to its page-store,
// the dirty marker is cleared and the before-image becomes the committed
// content. Clean cached pages also get their before-image refreshed, except
// those another transaction holds exclusively: such a page may already carry
// that writer's changes before it is marked dirty. Finally every lock tid
// holds is released.
//
// If a flush fails the error is returned with tid's locks still held and the
// remaining dirty pages still dirty; the caller should then Abort.
func (bp *BufferPool) Commit(tid primitives.TransactionID) error {
	bp.mutex.Lock()

	dirty := bp.dirtyPagesOf(tid)
	for _, p := range dirty {
		if err := bp.flushPage(p); err != nil {
			bp.mutex.Unlock()
			logging.WithTx(tid).Error("commit failed", append(logging.PageFields(p.ID()), zap.Error(err))...)
			return err
		}
		p.SetBeforeImage()
	}

	for _, p := range bp.cache.Pages() {
		if _, isDirty := p.IsDirty(); isDirty {
			continue
		}
		if writer, held := bp.lockManager.ExclusiveHolder(p.ID()); held && writer != tid {
			continue
		}
		p.SetBeforeImage()
	}
	delete(bp.dirtyPages, tid)
	bp.mutex.Unlock()

	bp.lockManager.ReleaseAll(tid)
	logging.WithTx(tid).Debug("transaction committed", zap.Int("dirty_pages", len(dirty)))
	return nil
}

// Abort discards tid's changes and ends it. Each page tid dirtied is rolled
// back to its before-image in the cache; nothing is written to a page-store.
// Every lock tid holds is released.
func (bp *BufferPool) Abort(tid primitives.TransactionID) {
	bp.mutex.Lock()

	dirty := bp.dirtyPagesOf(tid)
	for _, p := range dirty {
		p.Restore()
	}
	delete(bp.dirtyPages, tid)
	bp.metrics.DirtyPages.Set(float64(bp.dirtyCountLocked()))
	bp.mutex.Unlock()

	bp.lockManager.ReleaseAll(tid)
	logging.WithTx(tid).Debug("transaction aborted", zap.Int("restored_pages", len(dirty)))
}
