// Package log is the write-ahead log of the storage core.
//
// Sub-packages:
//
//   - [storecore/pkg/log/record]: log record types and their framed, checksummed
//     encoding.
//   - [storecore/pkg/log/wal]: the log file itself, its buffered writer and a
//     sequential reader.
//
// The buffer pool writes one Update record per dirty page at commit and forces
// the log before the page reaches the page-store, so a committed change is
// always durable in the log first.
package log
