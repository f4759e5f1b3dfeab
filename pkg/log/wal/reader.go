package wal

import (
	"io"
	"os"

	"storecore/pkg/log/record"
	"storecore/pkg/primitives"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// LogReader reads log records sequentially from the start of a log file.
// A frame cut short by the end of the file is a torn final write and reads
// as io.EOF; a frame whose checksum does not match is dberror.ErrLogCorrupted.
type LogReader struct {
	file   *os.File
	logID  uuid.UUID
	offset int64
}

func NewLogReader(logPath string) (*LogReader, error) {
	file, err := os.Open(logPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open log file")
	}

	logID, err := readHeader(file)
	if err != nil {
		file.Close()
		return nil, err
	}

	return &LogReader{file: file, logID: logID, offset: int64(HeaderSize)}, nil
}

func (lr *LogReader) LogID() uuid.UUID {
	return lr.logID
}

// ReadNext returns the next record, or io.EOF after the last one.
func (lr *LogReader) ReadNext() (*record.LogRecord, error) {
	header := make([]byte, record.FrameHeaderSize)
	if n, err := lr.file.ReadAt(header, lr.offset); n < len(header) {
		if err == nil || errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, errors.Wrapf(err, "failed to read frame header at offset %d", lr.offset)
	}

	size, checksum, err := record.ParseFrameHeader(header)
	if err != nil {
		return nil, err
	}

	payload := make([]byte, size)
	if n, err := lr.file.ReadAt(payload, lr.offset+record.FrameHeaderSize); n < size {
		if err == nil || errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, errors.Wrapf(err, "failed to read frame at offset %d", lr.offset)
	}

	rec, err := record.DeserializeLogRecord(payload, checksum)
	if err != nil {
		return nil, errors.Wrapf(err, "frame at offset %d", lr.offset)
	}

	rec.LSN = primitives.LSN(lr.offset)
	lr.offset += int64(record.FrameHeaderSize + size)
	return rec, nil
}

// ReadAll returns every remaining record.
func (lr *LogReader) ReadAll() ([]*record.LogRecord, error) {
	var records []*record.LogRecord
	for {
		rec, err := lr.ReadNext()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
}

// Reset rewinds to the first record.
func (lr *LogReader) Reset() {
	lr.offset = int64(HeaderSize)
}

// Offset is the byte position just past the last record read.
func (lr *LogReader) Offset() int64 {
	return lr.offset
}

func (lr *LogReader) Close() error {
	return lr.file.Close()
}
