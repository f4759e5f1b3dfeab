package memory

import (
	"storecore/pkg/primitives"
	"storecore/pkg/storage/page"
)

// node is one cache entry in the recency list.
type node struct {
	page       *page.Page
	lastAccess primitives.Timestamp
	prev       *node
	next       *node
}

// LRUPageCache maps page IDs to cached pages and keeps them in a doubly linked
// list ordered by last access, most recent at the head. Every lookup stamps
// the entry with a logical clock value and moves it to the head, so walking
// from the tail visits pages oldest-access first.
//
// The cache does no capacity or dirty-page bookkeeping and is not safe for
// concurrent use; the buffer pool serializes all access.
type LRUPageCache struct {
	entries map[primitives.PageID]*node
	head    *node
	tail    *node
	clock   primitives.Timestamp
}

func NewLRUPageCache() *LRUPageCache {
	head, tail := &node{}, &node{}
	head.next = tail
	tail.prev = head
	return &LRUPageCache{
		entries: make(map[primitives.PageID]*node),
		head:    head,
		tail:    tail,
	}
}

func (c *LRUPageCache) tick() primitives.Timestamp {
	c.clock++
	return c.clock
}

func (c *LRUPageCache) addToFront(n *node) {
	n.prev = c.head
	n.next = c.head.next
	c.head.next.prev = n
	c.head.next = n
}

func (c *LRUPageCache) unlink(n *node) {
	n.prev.next = n.next
	n.next.prev = n.prev
	n.prev, n.next = nil, nil
}

// Get returns the cached page and refreshes its last-access time.
func (c *LRUPageCache) Get(pid primitives.PageID) (*page.Page, bool) {
	n, ok := c.entries[pid]
	if !ok {
		return nil, false
	}
	n.lastAccess = c.tick()
	c.unlink(n)
	c.addToFront(n)
	return n.page, true
}

// Peek returns the cached page without touching its recency.
func (c *LRUPageCache) Peek(pid primitives.PageID) (*page.Page, bool) {
	n, ok := c.entries[pid]
	if !ok {
		return nil, false
	}
	return n.page, true
}

// Put inserts or replaces the page under p.ID() with a fresh access time.
func (c *LRUPageCache) Put(p *page.Page) {
	if n, ok := c.entries[p.ID()]; ok {
		n.page = p
		n.lastAccess = c.tick()
		c.unlink(n)
		c.addToFront(n)
		return
	}

	n := &node{page: p, lastAccess: c.tick()}
	c.entries[p.ID()] = n
	c.addToFront(n)
}

// Remove drops pid from the cache. Missing pages are ignored.
func (c *LRUPageCache) Remove(pid primitives.PageID) {
	if n, ok := c.entries[pid]; ok {
		delete(c.entries, pid)
		c.unlink(n)
	}
}

func (c *LRUPageCache) Size() int {
	return len(c.entries)
}

// LastAccess returns the logical time pid was last looked up.
func (c *LRUPageCache) LastAccess(pid primitives.PageID) (primitives.Timestamp, bool) {
	n, ok := c.entries[pid]
	if !ok {
		return 0, false
	}
	return n.lastAccess, true
}

// OldestFirst calls fn for each page from least to most recently accessed
// until fn returns false. fn must not modify the cache.
func (c *LRUPageCache) OldestFirst(fn func(p *page.Page) bool) {
	for n := c.tail.prev; n != c.head; n = n.prev {
		if !fn(n.page) {
			return
		}
	}
}

// Pages returns every cached page, oldest access first.
func (c *LRUPageCache) Pages() []*page.Page {
	pages := make([]*page.Page, 0, len(c.entries))
	c.OldestFirst(func(p *page.Page) bool {
		pages = append(pages, p)
		return true
	})
	return pages
}

// Clear empties the cache. The clock keeps running.
func (c *LRUPageCache) Clear() {
	c.entries = make(map[primitives.PageID]*node)
	c.head.next = c.tail
	c.tail.prev = c.head
}
