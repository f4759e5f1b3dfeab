package heap

import (
	"storecore/pkg/primitives"
	"storecore/pkg/storage/page"
)

// ScanFunc is called for every live record. Returning an error stops the scan
// and the error is returned from Scan.
type ScanFunc func(rid page.RecordID, rec []byte) error

// Scan visits every live record in page order, taking a shared lock on each
// page as it goes.
func (hf *HeapFile) Scan(tid primitives.TransactionID, src page.Source, fn ScanFunc) error {
	numPages, err := hf.NumPages()
	if err != nil {
		return err
	}

	for pageNo := primitives.PageNumber(0); pageNo < numPages; pageNo++ {
		pid := primitives.NewPageID(hf.ID(), pageNo)
		p, err := src.GetPage(tid, pid, primitives.ReadOnly)
		if err != nil {
			return err
		}

		data := p.Data()
		for slot := 0; slot < numSlots(data); slot++ {
			rec, ok := readRecord(data, primitives.SlotID(slot))
			if !ok {
				continue
			}
			if err := fn(page.RecordID{PageID: pid, Slot: primitives.SlotID(slot)}, rec); err != nil {
				return err
			}
		}
	}
	return nil
}
