// Package compress encodes cached payloads.
package compress

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownAlgorithm = errors.New("unknown compression algorithm")

// Compress is a symmetric byte encoder.
type Compress interface {
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
}

// ForName returns the encoder configured under name. An empty name selects
// no compression.
func ForName(name string) (Compress, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none", "nop":
		return NewNop(), nil
	case "gzip":
		return NewGZip(), nil
	case "brotli", "br":
		return NewBrotli(), nil
	case "lz4":
		return NewLZ4(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}
