package primitives

import "fmt"

// TableID identifies a table, and with it the page-store holding its pages.
// It is derived from the table file path, see Filepath.Hash.
type TableID uint64

// PageNumber represents a page number within a table
type PageNumber uint64

// LSN (Log Sequence Number) uniquely identifies each log record.
// It is monotonically increasing and represents the byte offset in the log file.
type LSN uint64

// SlotID represents a slot number within a page
type SlotID uint16

// Timestamp is a logical clock value. The buffer pool stamps every cache
// lookup with one to rank eviction candidates.
type Timestamp uint64

// InvalidTableID represents an invalid or unset table ID
const InvalidTableID TableID = 0

// IsValid checks if the TableID is a valid non-zero identifier.
func (t TableID) IsValid() bool {
	return t != InvalidTableID
}

func (t TableID) String() string {
	return fmt.Sprintf("TableID(%d)", uint64(t))
}
