package page

import (
	"storecore/pkg/primitives"
)

// RecordID locates a record: the page it lives on and its slot.
type RecordID struct {
	PageID primitives.PageID
	Slot   primitives.SlotID
}

// Source hands out pages under the caller's transaction, taking the page
// lock that perm requires. The buffer pool is the Source; page-stores never
// read their own pages directly while serving a transaction.
type Source interface {
	GetPage(tid primitives.TransactionID, pid primitives.PageID, perm primitives.Permissions) (*Page, error)
	HoldsLock(tid primitives.TransactionID, pid primitives.PageID) bool
	Release(tid primitives.TransactionID, pid primitives.PageID)
}

// DbFile is a table's page-store.
type DbFile interface {
	// ID is the table this file stores.
	ID() primitives.TableID

	// ReadPage reads a page from disk. Pages past the end of the file fail
	// with dberror.ErrUnknownPage.
	ReadPage(pid primitives.PageID) (*Page, error)

	// WritePage writes the page's current content to disk.
	WritePage(p *Page) error

	// InsertRecord stores rec and returns the pages it modified. Pages are
	// obtained from src with ReadWrite, so the caller's transaction holds an
	// exclusive lock on every returned page.
	InsertRecord(tid primitives.TransactionID, src Source, rec []byte) ([]*Page, error)

	// DeleteRecord removes the record at rid and returns the modified pages.
	DeleteRecord(tid primitives.TransactionID, src Source, rid RecordID) ([]*Page, error)

	Close() error
}
