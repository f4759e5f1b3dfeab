package wal

import (
	"io"

	"storecore/pkg/dberror"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// File header: 8 magic bytes followed by the 16-byte log id.
const (
	magic      = "SCWAL001"
	HeaderSize = len(magic) + 16
)

func encodeHeader(logID uuid.UUID) []byte {
	buf := make([]byte, 0, HeaderSize)
	buf = append(buf, magic...)
	return append(buf, logID[:]...)
}

func readHeader(r io.ReaderAt) (uuid.UUID, error) {
	buf := make([]byte, HeaderSize)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return uuid.Nil, errors.Wrap(err, "failed to read log header")
	}
	if string(buf[:len(magic)]) != magic {
		return uuid.Nil, dberror.Detailed(dberror.ErrLogCorrupted, "bad magic", "readHeader", "WAL")
	}
	id, err := uuid.FromBytes(buf[len(magic):])
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "failed to decode log id")
	}
	return id, nil
}
