package protocol

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/gzip"
)

// Compress gzips a serialized envelope. It fails with ErrEnvelopeTooLarge
// when the compressed body exceeds limits.MaxEnvelopeCompressedSize.
func Compress(data []byte, limits Limits) ([]byte, error) {
	limits = limits.WithDefaults()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("failed to compress envelope: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress envelope: %w", err)
	}

	if buf.Len() > limits.MaxEnvelopeCompressedSize {
		return nil, &EnvelopeError{Err: ErrEnvelopeTooLarge, Observed: buf.Len(), Limit: limits.MaxEnvelopeCompressedSize}
	}
	return buf.Bytes(), nil
}
