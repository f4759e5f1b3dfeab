package wal

import (
	"io"

	"storecore/pkg/primitives"

	"github.com/pkg/errors"
)

// syncWriterAt is the file surface the writer needs; *os.File satisfies it.
type syncWriterAt interface {
	io.WriterAt
	Sync() error
}

// LogWriter batches log frames in memory and writes them to the file at the
// LSN (byte offset) they were assigned. Frames larger than the buffer bypass
// it. LogWriter is not safe for concurrent use; the WAL serializes callers.
type LogWriter struct {
	file         syncWriterAt
	currentLSN   primitives.LSN
	flushedLSN   primitives.LSN
	syncedLSN    primitives.LSN
	buffer       []byte
	bufferOffset int
}

// NewLogWriter starts writing at start, which must be the end of valid data.
func NewLogWriter(file syncWriterAt, bufferSize int, start primitives.LSN) *LogWriter {
	return &LogWriter{
		file:       file,
		buffer:     make([]byte, bufferSize),
		currentLSN: start,
		flushedLSN: start,
		syncedLSN:  start,
	}
}

// Write appends a frame and returns its LSN.
func (w *LogWriter) Write(frame []byte) (primitives.LSN, error) {
	assigned := w.currentLSN

	if len(frame) > len(w.buffer) {
		if err := w.flush(); err != nil {
			return 0, err
		}
		if _, err := w.file.WriteAt(frame, int64(w.flushedLSN)); err != nil {
			return 0, errors.Wrap(err, "failed to write log frame")
		}
		w.flushedLSN += primitives.LSN(len(frame))
		w.currentLSN = w.flushedLSN
		return assigned, nil
	}

	if w.bufferOffset+len(frame) > len(w.buffer) {
		if err := w.flush(); err != nil {
			return 0, err
		}
	}
	copy(w.buffer[w.bufferOffset:], frame)
	w.bufferOffset += len(frame)
	w.currentLSN += primitives.LSN(len(frame))
	return assigned, nil
}

// Force makes every frame written so far durable: the buffer is written out
// and the file is fsynced.
func (w *LogWriter) Force() error {
	if err := w.flush(); err != nil {
		return err
	}
	if w.syncedLSN == w.flushedLSN {
		return nil
	}
	if err := w.file.Sync(); err != nil {
		return errors.Wrap(err, "failed to sync log")
	}
	w.syncedLSN = w.flushedLSN
	return nil
}

func (w *LogWriter) flush() error {
	if w.bufferOffset == 0 {
		return nil
	}
	if _, err := w.file.WriteAt(w.buffer[:w.bufferOffset], int64(w.flushedLSN)); err != nil {
		return errors.Wrap(err, "failed to flush log buffer")
	}
	w.flushedLSN = w.currentLSN
	w.bufferOffset = 0
	return nil
}

func (w *LogWriter) CurrentLSN() primitives.LSN {
	return w.currentLSN
}

// SyncedLSN is the end of the durable prefix of the log.
func (w *LogWriter) SyncedLSN() primitives.LSN {
	return w.syncedLSN
}

func (w *LogWriter) Close() error {
	return w.Force()
}
