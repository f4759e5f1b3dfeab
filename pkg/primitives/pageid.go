package primitives

import (
	"encoding/binary"
	"fmt"
)

// PageIDSize is the length of a serialized PageID.
const PageIDSize = 16

// PageID identifies a page by the table it belongs to and its number within
// that table. It is a comparable value: two PageIDs naming the same page are
// == and hash to the same map bucket, so it is used directly as a map key.
type PageID struct {
	Table TableID
	Page  PageNumber
}

// NewPageID creates a new page identifier
func NewPageID(table TableID, pageNo PageNumber) PageID {
	return PageID{Table: table, Page: pageNo}
}

// GetTableID returns the table this page belongs to
func (p PageID) GetTableID() TableID {
	return p.Table
}

// PageNo returns the page number within the table
func (p PageID) PageNo() PageNumber {
	return p.Page
}

// Serialize returns this page ID as 16 little-endian bytes: table, then page number.
func (p PageID) Serialize() []byte {
	buf := make([]byte, PageIDSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(p.Table))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(p.Page))
	return buf
}

// DeserializePageID is the inverse of Serialize.
func DeserializePageID(buf []byte) (PageID, error) {
	if len(buf) < PageIDSize {
		return PageID{}, fmt.Errorf("page id needs %d bytes, got %d", PageIDSize, len(buf))
	}
	return PageID{
		Table: TableID(binary.LittleEndian.Uint64(buf[0:8])),
		Page:  PageNumber(binary.LittleEndian.Uint64(buf[8:16])),
	}, nil
}

func (p PageID) String() string {
	return fmt.Sprintf("PageID(table=%d, page=%d)", uint64(p.Table), uint64(p.Page))
}
