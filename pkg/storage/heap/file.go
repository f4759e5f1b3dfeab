package heap

import (
	"storecore/pkg/dberror"
	"storecore/pkg/logging"
	"storecore/pkg/primitives"
	"storecore/pkg/storage/page"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// HeapFile stores a table's records, unordered, in slotted pages.
//
// Reads and writes of whole pages (ReadPage, WritePage) are raw I/O used by the
// buffer pool. Record operations take a page.Source and go through it so every
// page they touch is locked by the calling transaction.
type HeapFile struct {
	*page.BaseFile
}

var _ page.DbFile = (*HeapFile)(nil)

// NewHeapFile opens (creating if needed) the heap file at filename.
func NewHeapFile(filename primitives.Filepath) (*HeapFile, error) {
	baseFile, err := page.NewBaseFile(filename)
	if err != nil {
		return nil, err
	}
	return &HeapFile{BaseFile: baseFile}, nil
}

// ReadPage reads and checksum-verifies a page.
func (hf *HeapFile) ReadPage(pid primitives.PageID) (*page.Page, error) {
	if err := hf.checkTable(pid); err != nil {
		return nil, err
	}

	data, err := hf.ReadPageData(pid.PageNo())
	if err != nil {
		return nil, err
	}
	if err := verify(pid, data); err != nil {
		return nil, err
	}
	return page.New(pid, data), nil
}

// WritePage writes p at its page number.
func (hf *HeapFile) WritePage(p *page.Page) error {
	if p == nil {
		return dberror.New(dberror.ErrCategoryUser, dberror.CodeUnknownPage, "page cannot be nil")
	}
	if err := hf.checkTable(p.ID()); err != nil {
		return err
	}
	return hf.WritePageData(p.ID().PageNo(), p.Data())
}

func (hf *HeapFile) checkTable(pid primitives.PageID) error {
	if pid.GetTableID() != hf.ID() {
		return dberror.Detailed(dberror.ErrUnknownPage, "page ID table mismatch: "+pid.String(), "ReadPage", "HeapFile")
	}
	return nil
}

// InsertRecord stores rec on the first page with room, appending a new page
// when none has any. Pages are probed with a shared lock; a probed page that
// has no room is released again unless the transaction held it beforehand.
func (hf *HeapFile) InsertRecord(tid primitives.TransactionID, src page.Source, rec []byte) ([]*page.Page, error) {
	if len(rec) > MaxRecordSize {
		return nil, dberror.Detailed(dberror.ErrPageFull, "record larger than a page", "InsertRecord", "HeapFile")
	}

	numPages, err := hf.NumPages()
	if err != nil {
		return nil, err
	}

	for pageNo := primitives.PageNumber(0); pageNo < numPages; pageNo++ {
		pid := primitives.NewPageID(hf.ID(), pageNo)
		heldBefore := src.HoldsLock(tid, pid)

		p, err := src.GetPage(tid, pid, primitives.ReadOnly)
		if err != nil {
			return nil, err
		}
		if !fits(p.Data(), rec) {
			if !heldBefore {
				src.Release(tid, pid)
			}
			continue
		}

		modified, err := hf.insertInto(tid, src, pid, rec)
		if err == nil || !errors.Is(err, dberror.ErrPageFull) {
			return modified, err
		}
	}

	pageNo, err := hf.AllocatePage(NewEmptyPageData())
	if err != nil {
		return nil, err
	}
	logging.WithComponent("HeapFile").Debug("allocated page",
		zap.Uint64("table_id", uint64(hf.ID())), zap.Uint64("page_no", uint64(pageNo)))

	return hf.insertInto(tid, src, primitives.NewPageID(hf.ID(), pageNo), rec)
}

func (hf *HeapFile) insertInto(tid primitives.TransactionID, src page.Source, pid primitives.PageID, rec []byte) ([]*page.Page, error) {
	p, err := src.GetPage(tid, pid, primitives.ReadWrite)
	if err != nil {
		return nil, err
	}
	if err := p.Update(func(data []byte) error {
		_, err := insertRecord(data, rec)
		return err
	}); err != nil {
		return nil, err
	}
	return []*page.Page{p}, nil
}

// DeleteRecord removes the record at rid.
func (hf *HeapFile) DeleteRecord(tid primitives.TransactionID, src page.Source, rid page.RecordID) ([]*page.Page, error) {
	if err := hf.checkTable(rid.PageID); err != nil {
		return nil, err
	}

	p, err := src.GetPage(tid, rid.PageID, primitives.ReadWrite)
	if err != nil {
		return nil, err
	}
	if err := p.Update(func(data []byte) error {
		return deleteRecord(data, rid.Slot)
	}); err != nil {
		return nil, err
	}
	return []*page.Page{p}, nil
}

// GetRecord returns the record at rid under a shared lock.
func (hf *HeapFile) GetRecord(tid primitives.TransactionID, src page.Source, rid page.RecordID) ([]byte, error) {
	if err := hf.checkTable(rid.PageID); err != nil {
		return nil, err
	}

	p, err := src.GetPage(tid, rid.PageID, primitives.ReadOnly)
	if err != nil {
		return nil, err
	}
	rec, ok := readRecord(p.Data(), rid.Slot)
	if !ok {
		return nil, dberror.Detailed(dberror.ErrRecordNotFound, "", "GetRecord", "HeapFile")
	}
	return rec, nil
}
