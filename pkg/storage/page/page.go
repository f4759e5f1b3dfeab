package page

import (
	"sync"

	"storecore/pkg/primitives"
)

// PageSize is the size of every page on disk and in the buffer pool.
const PageSize = 4096

// Page is a page resident in the buffer pool: its current content, the
// committed content it started from (the before-image) and the transaction
// that dirtied it, if any.
//
// Data and BeforeImage return copies; mutations go through Update so the page
// lock is held while the bytes change.
type Page struct {
	id primitives.PageID

	mutex       sync.RWMutex
	data        []byte
	beforeImage []byte
	dirtier     primitives.TransactionID
	dirty       bool
}

// New creates a clean page whose before-image equals data.
func New(id primitives.PageID, data []byte) *Page {
	return &Page{
		id:          id,
		data:        clone(data),
		beforeImage: clone(data),
	}
}

// NewWithBeforeImage creates a clean page with an explicit before-image, used
// when the committed content differs from what is being installed.
func NewWithBeforeImage(id primitives.PageID, data, beforeImage []byte) *Page {
	return &Page{
		id:          id,
		data:        clone(data),
		beforeImage: clone(beforeImage),
	}
}

func (p *Page) ID() primitives.PageID {
	return p.id
}

// Data returns a copy of the current content.
func (p *Page) Data() []byte {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return clone(p.data)
}

// Update runs fn on the live content under the page's write lock. If fn
// returns an error the content is left as fn left it; callers that need
// atomicity validate before mutating.
func (p *Page) Update(fn func(data []byte) error) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return fn(p.data)
}

// SetData replaces the content.
func (p *Page) SetData(data []byte) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.data = clone(data)
}

// IsDirty returns the transaction that dirtied the page and whether it is dirty.
func (p *Page) IsDirty() (primitives.TransactionID, bool) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.dirtier, p.dirty
}

// MarkDirty records tid as the page's dirtier.
func (p *Page) MarkDirty(tid primitives.TransactionID) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.dirtier = tid
	p.dirty = true
}

// MarkClean clears the dirty marker.
func (p *Page) MarkClean() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.dirtier = primitives.TransactionID{}
	p.dirty = false
}

// BeforeImage returns a copy of the last committed content.
func (p *Page) BeforeImage() []byte {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return clone(p.beforeImage)
}

// SetBeforeImage snapshots the current content as the committed content.
func (p *Page) SetBeforeImage() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.beforeImage = clone(p.data)
}

// Restore rolls the content back to the before-image and clears the dirty
// marker.
func (p *Page) Restore() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.data = clone(p.beforeImage)
	p.dirtier = primitives.TransactionID{}
	p.dirty = false
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
