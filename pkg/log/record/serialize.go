package record

import (
	"encoding/binary"

	"storecore/pkg/dberror"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/s2"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// Frame layout: [payload length u32][xxhash64(payload) u64][msgpack payload].
const (
	FrameHeaderSize = 12

	// MaxPayloadSize bounds a single frame so a corrupt length cannot make a
	// reader allocate unbounded memory.
	MaxPayloadSize = 10 * 1024 * 1024
)

// SerializeLogRecord encodes rec as a frame. When compress is set the images
// are stored as s2 blocks; rec itself is not modified.
func SerializeLogRecord(rec *LogRecord, compress bool) ([]byte, error) {
	out := *rec
	if compress && (len(rec.BeforeImage) > 0 || len(rec.AfterImage) > 0) {
		out.BeforeImage = s2.Encode(nil, rec.BeforeImage)
		out.AfterImage = s2.Encode(nil, rec.AfterImage)
		out.Compressed = true
	}

	payload, err := msgpack.Marshal(&out)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode log record")
	}
	if len(payload) > MaxPayloadSize {
		return nil, errors.Errorf("log record too large: %d bytes", len(payload))
	}

	frame := make([]byte, FrameHeaderSize+len(payload))
	binary.LittleEndian.PutUint32(frame[0:4], uint32(len(payload)))
	binary.LittleEndian.PutUint64(frame[4:12], xxhash.Sum64(payload))
	copy(frame[FrameHeaderSize:], payload)
	return frame, nil
}

// ParseFrameHeader returns the payload length and checksum of a frame.
func ParseFrameHeader(header []byte) (int, uint64, error) {
	if len(header) < FrameHeaderSize {
		return 0, 0, errors.Errorf("short frame header: %d bytes", len(header))
	}
	size := binary.LittleEndian.Uint32(header[0:4])
	if size == 0 || size > MaxPayloadSize {
		return 0, 0, dberror.Detailed(dberror.ErrLogCorrupted, "invalid frame length", "ParseFrameHeader", "LogRecord")
	}
	return int(size), binary.LittleEndian.Uint64(header[4:12]), nil
}

// DeserializeLogRecord verifies payload against checksum and decodes it,
// decompressing images if needed.
func DeserializeLogRecord(payload []byte, checksum uint64) (*LogRecord, error) {
	if xxhash.Sum64(payload) != checksum {
		return nil, dberror.Detailed(dberror.ErrLogCorrupted, "", "DeserializeLogRecord", "LogRecord")
	}

	var rec LogRecord
	if err := msgpack.Unmarshal(payload, &rec); err != nil {
		return nil, errors.Wrap(err, "failed to decode log record")
	}

	if rec.Compressed {
		var err error
		if rec.BeforeImage, err = s2.Decode(nil, rec.BeforeImage); err != nil {
			return nil, errors.Wrap(err, "failed to decompress before-image")
		}
		if rec.AfterImage, err = s2.Decode(nil, rec.AfterImage); err != nil {
			return nil, errors.Wrap(err, "failed to decompress after-image")
		}
		rec.Compressed = false
	}
	return &rec, nil
}
