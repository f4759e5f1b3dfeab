package memory

import (
	"storecore/pkg/logging"
	"storecore/pkg/primitives"
	"storecore/pkg/storage/page"

	"github.com/pkg/errors"
)

// flushPage writes a dirty page to its page-store: the before and after
// images go to the log, the log is forced, then the page is written and its
// dirty marker cleared. Clean pages are left alone.
// Must be called with bp.mutex held.
func (bp *BufferPool) flushPage(p *page.Page) error {
	dirtier, dirty := p.IsDirty()
	if !dirty {
		return nil
	}

	pid := p.ID()
	dbFile, err := bp.catalog.GetDbFile(pid.GetTableID())
	if err != nil {
		return err
	}

	if _, err := bp.wal.LogWrite(dirtier, pid, p.BeforeImage(), p.Data()); err != nil {
		return errors.Wrapf(err, "failed to log %s", pid)
	}
	if err := bp.wal.Force(); err != nil {
		return errors.Wrap(err, "failed to force log")
	}
	if err := dbFile.WritePage(p); err != nil {
		return errors.Wrapf(err, "failed to write %s", pid)
	}

	p.MarkClean()
	bp.forgetDirty(dirtier, pid)
	bp.stats.flushes.Add(1)
	bp.metrics.Flushes.Inc()
	logging.WithLock(dirtier, pid).Debug("flushed page")
	return nil
}

// FlushAll writes every dirty cached page to its page-store. Used outside
// checkpointing this writes uncommitted data and breaks no-steal.
func (bp *BufferPool) FlushAll() error {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	for _, p := range bp.cache.Pages() {
		if err := bp.flushPage(p); err != nil {
			return err
		}
	}
	return nil
}

// FlushFor writes the pages tid has dirtied.
func (bp *BufferPool) FlushFor(tid primitives.TransactionID) error {
	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	for _, p := range bp.dirtyPagesOf(tid) {
		if err := bp.flushPage(p); err != nil {
			return err
		}
	}
	return nil
}

// markDirty records tid as p's dirtier. Must be called with bp.mutex held.
func (bp *BufferPool) markDirty(tid primitives.TransactionID, p *page.Page) {
	if prev, dirty := p.IsDirty(); dirty && prev != tid {
		bp.forgetDirty(prev, p.ID())
	}
	p.MarkDirty(tid)

	pages, ok := bp.dirtyPages[tid]
	if !ok {
		pages = make(map[primitives.PageID]struct{})
		bp.dirtyPages[tid] = pages
	}
	pages[p.ID()] = struct{}{}
	bp.metrics.DirtyPages.Set(float64(bp.dirtyCountLocked()))
}

// forgetDirty removes pid from tid's dirty set. Must be called with bp.mutex held.
func (bp *BufferPool) forgetDirty(tid primitives.TransactionID, pid primitives.PageID) {
	pages, ok := bp.dirtyPages[tid]
	if !ok {
		return
	}
	delete(pages, pid)
	if len(pages) == 0 {
		delete(bp.dirtyPages, tid)
	}
	bp.metrics.DirtyPages.Set(float64(bp.dirtyCountLocked()))
}

// dirtyPagesOf returns the cached pages tid has dirtied. Must be called with
// bp.mutex held.
func (bp *BufferPool) dirtyPagesOf(tid primitives.TransactionID) []*page.Page {
	pages := make([]*page.Page, 0, len(bp.dirtyPages[tid]))
	for pid := range bp.dirtyPages[tid] {
		if p, ok := bp.cache.Peek(pid); ok {
			pages = append(pages, p)
		}
	}
	return pages
}
