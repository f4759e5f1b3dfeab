package wal

import (
	"os"
	"sync"

	"storecore/pkg/log/record"
	"storecore/pkg/logging"
	"storecore/pkg/primitives"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultBufferSize is used when Options.BufferSize is not positive.
const DefaultBufferSize = 8192

type Options struct {
	BufferSize int

	// CompressImages stores Update images as s2 blocks.
	CompressImages bool
}

// WAL is an append-only log of transaction records. It is safe for
// concurrent use.
type WAL struct {
	file       *os.File
	path       string
	logID      uuid.UUID
	compress   bool
	writer     *LogWriter
	activeTxns map[primitives.TransactionID]*record.TransactionLogInfo
	mutex      sync.Mutex
}

// Open opens the log at logPath, creating it with a fresh log id if it does
// not exist. An existing log is scanned to its last complete record and any
// torn tail is truncated before new records are appended.
func Open(logPath string, opts Options) (*WAL, error) {
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open WAL file")
	}

	logID, end, err := prepare(file, logPath)
	if err != nil {
		file.Close()
		return nil, err
	}

	logging.WithComponent("WAL").Debug("log opened",
		zap.String("path", logPath), zap.Stringer("log_id", logID), zap.Int64("end", end))

	return &WAL{
		file:       file,
		path:       logPath,
		logID:      logID,
		compress:   opts.CompressImages,
		writer:     NewLogWriter(file, opts.BufferSize, primitives.LSN(end)),
		activeTxns: make(map[primitives.TransactionID]*record.TransactionLogInfo),
	}, nil
}

func prepare(file *os.File, logPath string) (uuid.UUID, int64, error) {
	info, err := file.Stat()
	if err != nil {
		return uuid.Nil, 0, errors.Wrap(err, "failed to stat WAL file")
	}

	if info.Size() == 0 {
		logID := uuid.New()
		if _, err := file.WriteAt(encodeHeader(logID), 0); err != nil {
			return uuid.Nil, 0, errors.Wrap(err, "failed to write WAL header")
		}
		if err := file.Sync(); err != nil {
			return uuid.Nil, 0, errors.Wrap(err, "failed to sync WAL header")
		}
		return logID, int64(HeaderSize), nil
	}

	reader, err := NewLogReader(logPath)
	if err != nil {
		return uuid.Nil, 0, err
	}
	defer reader.Close()

	if _, err := reader.ReadAll(); err != nil {
		return uuid.Nil, 0, err
	}
	end := reader.Offset()
	if end < info.Size() {
		logging.WithComponent("WAL").Warn("truncating torn log tail",
			zap.Int64("end", end), zap.Int64("size", info.Size()))
		if err := file.Truncate(end); err != nil {
			return uuid.Nil, 0, errors.Wrap(err, "failed to truncate torn WAL tail")
		}
	}
	return reader.LogID(), end, nil
}

func (w *WAL) LogID() uuid.UUID {
	return w.logID
}

func (w *WAL) Path() string {
	return w.path
}

// LogBegin records the start of tid.
func (w *WAL) LogBegin(tid primitives.TransactionID) (primitives.LSN, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	lsn, err := w.append(record.NewLogRecord(record.BeginRecord, tid, primitives.PageID{}, nil, nil, 0))
	if err != nil {
		return 0, err
	}
	w.activeTxns[tid] = &record.TransactionLogInfo{FirstLSN: lsn, LastLSN: lsn}
	return lsn, nil
}

// LogWrite appends an Update record carrying the page's before and after
// images. It does not force; callers call Force before relying on the record.
func (w *WAL) LogWrite(tid primitives.TransactionID, pid primitives.PageID, before, after []byte) (primitives.LSN, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	info := w.txnInfo(tid)
	lsn, err := w.append(record.NewLogRecord(record.UpdateRecord, tid, pid, before, after, info.LastLSN))
	if err != nil {
		return 0, err
	}
	info.LastLSN = lsn
	return lsn, nil
}

// LogCommit appends a Commit record and forces the log.
func (w *WAL) LogCommit(tid primitives.TransactionID) (primitives.LSN, error) {
	return w.logEnd(record.CommitRecord, tid, true)
}

// LogAbort appends an Abort record. Nothing about an abort needs to be
// durable, so the log is not forced.
func (w *WAL) LogAbort(tid primitives.TransactionID) (primitives.LSN, error) {
	return w.logEnd(record.AbortRecord, tid, false)
}

func (w *WAL) logEnd(kind record.LogRecordType, tid primitives.TransactionID, force bool) (primitives.LSN, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	info := w.txnInfo(tid)
	lsn, err := w.append(record.NewLogRecord(kind, tid, primitives.PageID{}, nil, nil, info.LastLSN))
	if err != nil {
		return 0, err
	}
	if force {
		if err := w.writer.Force(); err != nil {
			return 0, errors.Wrapf(err, "failed to force %s record", kind)
		}
	}
	delete(w.activeTxns, tid)
	return lsn, nil
}

// txnInfo returns tid's log span, starting one for transactions that wrote
// without a Begin record. Must be called with w.mutex held.
func (w *WAL) txnInfo(tid primitives.TransactionID) *record.TransactionLogInfo {
	info, ok := w.activeTxns[tid]
	if !ok {
		info = &record.TransactionLogInfo{FirstLSN: w.writer.CurrentLSN()}
		w.activeTxns[tid] = info
	}
	return info
}

func (w *WAL) append(rec *record.LogRecord) (primitives.LSN, error) {
	frame, err := record.SerializeLogRecord(rec, w.compress)
	if err != nil {
		return 0, err
	}
	return w.writer.Write(frame)
}

// Force makes every record appended so far durable.
func (w *WAL) Force() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.writer.Force()
}

// ActiveTransactions returns the transactions with records but no Commit or
// Abort yet.
func (w *WAL) ActiveTransactions() []primitives.TransactionID {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	txns := make([]primitives.TransactionID, 0, len(w.activeTxns))
	for tid := range w.activeTxns {
		txns = append(txns, tid)
	}
	return txns
}

// CurrentLSN is the LSN the next record will receive.
func (w *WAL) CurrentLSN() primitives.LSN {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.writer.CurrentLSN()
}

// Close forces outstanding records and closes the file.
func (w *WAL) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.file == nil {
		return nil
	}
	if err := w.writer.Close(); err != nil {
		return errors.Wrap(err, "failed to close WAL writer")
	}
	err := w.file.Close()
	w.file = nil
	return errors.Wrap(err, "failed to close WAL file")
}
