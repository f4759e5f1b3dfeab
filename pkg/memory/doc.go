// Package memory implements the buffer pool: a bounded cache of pages shared
// by concurrent transactions.
//
// Every page handed out is protected by a page lock from the lock manager,
// taken before the page is returned and held until the transaction commits or
// aborts (strict two-phase locking).
//
// The pool follows a no-steal, force discipline:
//
//   - A dirty page is never written to its page-store before the transaction
//     that dirtied it commits, and is never evicted. Aborting therefore only
//     restores cached before-images.
//   - Commit logs each dirty page's before and after image, forces the log,
//     and only then writes the page to its page-store.
//
// When the pool is full, the least recently accessed clean page is evicted.
// If every cached page is dirty, GetPage fails with
// dberror.ErrEvictionExhausted rather than breaking no-steal.
package memory
