package heap

import (
	"encoding/binary"

	"storecore/pkg/dberror"
	"storecore/pkg/primitives"
	"storecore/pkg/storage/page"

	"github.com/cespare/xxhash/v2"
)

// Slotted page layout:
//
//	[numSlots u16][freeEnd u16][slot 0]...[slot n-1] free ... records [checksum u64]
//
// Slot pointers grow from the header toward the end of the page; record bytes
// are packed from the checksum trailer backward. A slot whose offset is 0 is
// empty, since no record can start inside the header.
const (
	headerSize      = 4
	SlotPointerSize = 4
	checksumSize    = 8

	dataEnd = page.PageSize - checksumSize

	// MaxRecordSize is the largest record that fits on an empty page.
	MaxRecordSize = dataEnd - headerSize - SlotPointerSize
)

// SlotPointer locates one record within a page. Offset 0 means empty.
type SlotPointer struct {
	Offset uint16
	Length uint16
}

// NewEmptyPageData returns a formatted, checksummed page with no slots.
func NewEmptyPageData() []byte {
	data := make([]byte, page.PageSize)
	setNumSlots(data, 0)
	setFreeEnd(data, dataEnd)
	seal(data)
	return data
}

func numSlots(data []byte) int {
	return int(binary.LittleEndian.Uint16(data[0:2]))
}

func setNumSlots(data []byte, n int) {
	binary.LittleEndian.PutUint16(data[0:2], uint16(n))
}

func freeEnd(data []byte) int {
	return int(binary.LittleEndian.Uint16(data[2:4]))
}

func setFreeEnd(data []byte, off int) {
	binary.LittleEndian.PutUint16(data[2:4], uint16(off))
}

func slotAt(data []byte, slot int) SlotPointer {
	base := headerSize + slot*SlotPointerSize
	return SlotPointer{
		Offset: binary.LittleEndian.Uint16(data[base : base+2]),
		Length: binary.LittleEndian.Uint16(data[base+2 : base+4]),
	}
}

func setSlot(data []byte, slot int, sp SlotPointer) {
	base := headerSize + slot*SlotPointerSize
	binary.LittleEndian.PutUint16(data[base:base+2], sp.Offset)
	binary.LittleEndian.PutUint16(data[base+2:base+4], sp.Length)
}

// freeSpace is the gap between the slot array and the packed records.
func freeSpace(data []byte) int {
	return freeEnd(data) - (headerSize + numSlots(data)*SlotPointerSize)
}

func firstEmptySlot(data []byte) int {
	for i := 0; i < numSlots(data); i++ {
		if slotAt(data, i).Offset == 0 {
			return i
		}
	}
	return -1
}

// fits reports whether rec can be inserted without compaction.
func fits(data []byte, rec []byte) bool {
	need := len(rec)
	if firstEmptySlot(data) < 0 {
		need += SlotPointerSize
	}
	return need <= freeSpace(data)
}

// insertRecord places rec on the page and reseals it.
func insertRecord(data []byte, rec []byte) (primitives.SlotID, error) {
	if len(rec) > MaxRecordSize {
		return 0, dberror.Detailed(dberror.ErrPageFull, "record larger than a page", "InsertRecord", "HeapPage")
	}
	if !fits(data, rec) {
		return 0, dberror.Detailed(dberror.ErrPageFull, "", "InsertRecord", "HeapPage")
	}

	slot := firstEmptySlot(data)
	if slot < 0 {
		slot = numSlots(data)
		setNumSlots(data, slot+1)
	}

	offset := freeEnd(data) - len(rec)
	copy(data[offset:], rec)
	setFreeEnd(data, offset)
	setSlot(data, slot, SlotPointer{Offset: uint16(offset), Length: uint16(len(rec))})
	seal(data)
	return primitives.SlotID(slot), nil
}

// deleteRecord empties the slot and repacks the remaining records so the
// freed bytes are available to the next insert.
func deleteRecord(data []byte, slot primitives.SlotID) error {
	if int(slot) >= numSlots(data) || slotAt(data, int(slot)).Offset == 0 {
		return dberror.Detailed(dberror.ErrRecordNotFound, "", "DeleteRecord", "HeapPage")
	}
	setSlot(data, int(slot), SlotPointer{})
	compact(data)
	seal(data)
	return nil
}

// compact repacks live records against the end of the page so freeSpace
// reflects every deleted record. Slot numbers are stable.
func compact(data []byte) {
	n := numSlots(data)
	records := make([][]byte, n)
	live := make([]bool, n)
	for i := 0; i < n; i++ {
		if sp := slotAt(data, i); sp.Offset != 0 {
			records[i] = append([]byte{}, data[sp.Offset:int(sp.Offset)+int(sp.Length)]...)
			live[i] = true
		}
	}

	end := dataEnd
	for i, rec := range records {
		if !live[i] {
			continue
		}
		end -= len(rec)
		copy(data[end:], rec)
		setSlot(data, i, SlotPointer{Offset: uint16(end), Length: uint16(len(rec))})
	}
	setFreeEnd(data, end)
}

// readRecord returns a copy of the record in slot.
func readRecord(data []byte, slot primitives.SlotID) ([]byte, bool) {
	if int(slot) >= numSlots(data) {
		return nil, false
	}
	sp := slotAt(data, int(slot))
	if sp.Offset == 0 {
		return nil, false
	}
	return append([]byte{}, data[sp.Offset:int(sp.Offset)+int(sp.Length)]...), true
}

func seal(data []byte) {
	binary.LittleEndian.PutUint64(data[dataEnd:], xxhash.Sum64(data[:dataEnd]))
}

// verify checks the checksum trailer.
func verify(pid primitives.PageID, data []byte) error {
	if len(data) != page.PageSize {
		return dberror.Detailed(dberror.ErrPageCorrupted, pid.String(), "ReadPage", "HeapFile")
	}
	if binary.LittleEndian.Uint64(data[dataEnd:]) != xxhash.Sum64(data[:dataEnd]) {
		return dberror.Detailed(dberror.ErrPageCorrupted, pid.String(), "ReadPage", "HeapFile")
	}
	return nil
}
