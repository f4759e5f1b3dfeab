package record

import (
	"fmt"
	"time"

	"storecore/pkg/primitives"
)

type LSN = primitives.LSN

// LogRecordType is the kind of a log record.
type LogRecordType uint8

const (
	BeginRecord LogRecordType = iota
	UpdateRecord
	CommitRecord
	AbortRecord
)

func (t LogRecordType) String() string {
	switch t {
	case BeginRecord:
		return "BEGIN"
	case UpdateRecord:
		return "UPDATE"
	case CommitRecord:
		return "COMMIT"
	case AbortRecord:
		return "ABORT"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
	}
}

// LogRecord is one entry of the write-ahead log. Update records carry the
// page's committed content (BeforeImage) and its new content (AfterImage).
type LogRecord struct {
	LSN     LSN           `msgpack:"-"`
	Type    LogRecordType `msgpack:"type"`
	TxID    int64         `msgpack:"tx"`
	PrevLSN LSN           `msgpack:"prev"`

	TableID primitives.TableID    `msgpack:"table,omitempty"`
	PageNo  primitives.PageNumber `msgpack:"page,omitempty"`

	BeforeImage []byte `msgpack:"before,omitempty"`
	AfterImage  []byte `msgpack:"after,omitempty"`

	// Compressed is set when both images are s2 blocks on disk. Decoded
	// records always carry plain images.
	Compressed bool `msgpack:"s2,omitempty"`

	Timestamp int64 `msgpack:"ts"`
}

// TransactionLogInfo tracks the log span of a transaction that has not
// finished yet.
type TransactionLogInfo struct {
	FirstLSN, LastLSN LSN
}

func NewLogRecord(logType LogRecordType, tid primitives.TransactionID, pid primitives.PageID, beforeImage, afterImage []byte, prevLSN LSN) *LogRecord {
	return &LogRecord{
		Type:        logType,
		TxID:        tid.ID(),
		PrevLSN:     prevLSN,
		TableID:     pid.Table,
		PageNo:      pid.Page,
		BeforeImage: beforeImage,
		AfterImage:  afterImage,
		Timestamp:   time.Now().UnixNano(),
	}
}

// TransactionID returns the transaction that wrote the record.
func (l *LogRecord) TransactionID() primitives.TransactionID {
	return primitives.NewTransactionIDFromValue(l.TxID)
}

// PageID returns the page an Update record refers to.
func (l *LogRecord) PageID() primitives.PageID {
	return primitives.NewPageID(l.TableID, l.PageNo)
}

func (l *LogRecord) Time() time.Time {
	return time.Unix(0, l.Timestamp)
}

func (l *LogRecord) String() string {
	if l.Type == UpdateRecord {
		return fmt.Sprintf("%d %s %s %s before=%dB after=%dB",
			l.LSN, l.Type, l.TransactionID(), l.PageID(), len(l.BeforeImage), len(l.AfterImage))
	}
	return fmt.Sprintf("%d %s %s", l.LSN, l.Type, l.TransactionID())
}
