package cache

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
)

const (
	// DefaultCompressionThreshold is the serialized size above which
	// values are considered for compression.
	DefaultCompressionThreshold = 1024
)

// Codec serializes values for tier storage and compresses them above a
// size threshold. The compressed form is kept only when it is strictly
// smaller than the plain serialization.
type Codec struct {
	threshold int
}

// NewCodec creates a codec with the given compression threshold in bytes.
// A threshold <= 0 falls back to DefaultCompressionThreshold.
func NewCodec(threshold int) *Codec {
	if threshold <= 0 {
		threshold = DefaultCompressionThreshold
	}
	return &Codec{threshold: threshold}
}

// Encode serializes value and compresses the result when it exceeds the
// threshold and compression actually shrinks it. plainSize is the
// uncompressed serialized size, reported for compression accounting.
func (c *Codec) Encode(value any) (data []byte, compressed bool, plainSize int, err error) {
	plain, err := json.Marshal(value)
	if err != nil {
		return nil, false, 0, &SerializationError{Op: "encode", Err: err}
	}

	if len(plain) <= c.threshold {
		return plain, false, len(plain), nil
	}

	packed, err := gzipBytes(plain)
	if err != nil {
		// Compression failure is not fatal; store the plain form.
		return plain, false, len(plain), nil
	}
	if len(packed) >= len(plain) {
		return plain, false, len(plain), nil
	}
	return packed, true, len(plain), nil
}

// Decode reverses the exact transform applied at encode time and
// unmarshals the result into out. The compressed flag is authoritative,
// but gzip framing is also sniffed so bytes read back from a shared tier
// decode correctly without side metadata.
func (c *Codec) Decode(data []byte, compressed bool, out any) error {
	plain, err := c.Decompress(data, compressed)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plain, out); err != nil {
		return &SerializationError{Op: "decode", Err: err}
	}
	return nil
}

// Decompress returns the plain serialized bytes for stored data.
func (c *Codec) Decompress(data []byte, compressed bool) ([]byte, error) {
	if !compressed && !IsGzipped(data) {
		return data, nil
	}
	plain, err := gunzipBytes(data)
	if err != nil {
		return nil, &SerializationError{Op: "decode", Err: err}
	}
	return plain, nil
}

// IsGzipped reports whether data starts with the gzip magic bytes.
func IsGzipped(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzipBytes(data []byte) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = gz.Close() }()
	return io.ReadAll(gz)
}
