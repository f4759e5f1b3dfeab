// Package storage is the root of storecore's on-disk page storage.
//
// Data is organised into fixed-size 4 KB pages that are read and written as
// atomic units.
//
// # Sub-packages
//
//   - [storecore/pkg/storage/page] – the in-memory Page (content, before-image,
//     dirty marker), the DbFile contract the buffer pool reads and writes
//     through, and BaseFile, the shared fixed-size page file.
//   - [storecore/pkg/storage/heap] – heap file: an unordered collection of
//     slotted pages holding variable-length records. Supports sequential scans
//     and record insert/delete through the buffer pool.
//
// # Page layout
//
// A heap page starts with a small header (slot count, free-space end)
// followed by the slot directory growing toward the end of the page. Record
// bytes are packed from the end of the page backward. The last 8 bytes hold an
// xxhash64 of everything before them and are checked on every read.
package storage
