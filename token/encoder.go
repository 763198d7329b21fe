package token

import (
	"encoding/binary"
	"fmt"
	"time"
)

const (
	recordFormatVersionCurrent = 1
	recordEncodedSize          = 1 + 8 + 8
)

// Encode serializes the record's timestamps. The token string is the storage
// key and is not part of the value.
func Encode(r *Record) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil record", ErrCorrupt)
	}
	if r.ExpiresAt.Before(r.CreatedAt) {
		return nil, fmt.Errorf("%w: expiresAt before createdAt", ErrCorrupt)
	}

	buf := make([]byte, recordEncodedSize)
	buf[0] = recordFormatVersionCurrent
	binary.BigEndian.PutUint64(buf[1:9], uint64(r.CreatedAt.UnixNano()))
	binary.BigEndian.PutUint64(buf[9:17], uint64(r.ExpiresAt.UnixNano()))
	return buf, nil
}

// Decode parses a value produced by [Encode] and attaches tok as the record's token.
func Decode(tok string, data []byte) (*Record, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty value", ErrCorrupt)
	}
	if data[0] != recordFormatVersionCurrent {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, data[0])
	}
	if len(data) != recordEncodedSize {
		return nil, fmt.Errorf("%w: size %d", ErrCorrupt, len(data))
	}

	return &Record{
		Token:     tok,
		CreatedAt: time.Unix(0, int64(binary.BigEndian.Uint64(data[1:9]))),
		ExpiresAt: time.Unix(0, int64(binary.BigEndian.Uint64(data[9:17]))),
	}, nil
}
