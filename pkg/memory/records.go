package memory

import (
	"storecore/pkg/concurrency/lock"
	"storecore/pkg/primitives"
	"storecore/pkg/storage/page"
)

// ApplyInsert inserts rec into tableID's page-store on behalf of tid and
// returns the pages it dirtied. Each returned page is locked exclusively by
// tid, marked dirty and put back in the cache with a fresh access time. The
// cache may briefly exceed capacity here; the page-store only touches pages it
// obtained through the pool.
func (bp *BufferPool) ApplyInsert(tid primitives.TransactionID, tableID primitives.TableID, rec []byte) ([]primitives.PageID, error) {
	dbFile, err := bp.catalog.GetDbFile(tableID)
	if err != nil {
		return nil, err
	}

	pages, err := dbFile.InsertRecord(tid, bp, rec)
	if err != nil {
		return nil, err
	}
	return bp.installDirty(tid, pages)
}

// ApplyDelete removes the record at rid on behalf of tid and returns the page
// it dirtied.
func (bp *BufferPool) ApplyDelete(tid primitives.TransactionID, rid page.RecordID) (primitives.PageID, error) {
	dbFile, err := bp.catalog.GetDbFile(rid.PageID.GetTableID())
	if err != nil {
		return primitives.PageID{}, err
	}

	pages, err := dbFile.DeleteRecord(tid, bp, rid)
	if err != nil {
		return primitives.PageID{}, err
	}
	if _, err := bp.installDirty(tid, pages); err != nil {
		return primitives.PageID{}, err
	}
	return rid.PageID, nil
}

func (bp *BufferPool) installDirty(tid primitives.TransactionID, pages []*page.Page) ([]primitives.PageID, error) {
	for _, p := range pages {
		if err := bp.acquireLock(tid, p.ID(), lock.ExclusiveLock); err != nil {
			return nil, err
		}
	}

	bp.mutex.Lock()
	defer bp.mutex.Unlock()

	ids := make([]primitives.PageID, 0, len(pages))
	for _, p := range pages {
		bp.markDirty(tid, p)
		bp.cache.Put(p)
		ids = append(ids, p.ID())
	}
	bp.metrics.ResidentPages.Set(float64(bp.cache.Size()))
	return ids, nil
}
