// Package codec compresses stored message bodies with zstd.
package codec

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Compressor wraps a shared zstd encoder/decoder pair. EncodeAll and
// DecodeAll are safe for concurrent use.
type Compressor struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewCompressor builds a Compressor with the fastest encoder level.
func NewCompressor() (*Compressor, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		_ = enc.Close()
		return nil, err
	}
	return &Compressor{enc: enc, dec: dec}, nil
}

// Compress returns the zstd frame for src.
func (c *Compressor) Compress(src []byte) []byte {
	return c.enc.EncodeAll(src, make([]byte, 0, len(src)/2+16))
}

// Decompress decodes a frame produced by Compress.
func (c *Compressor) Decompress(src []byte) ([]byte, error) {
	return c.dec.DecodeAll(src, nil)
}

// Close releases encoder and decoder resources.
func (c *Compressor) Close() error {
	c.dec.Close()
	return c.enc.Close()
}

var (
	sharedOnce sync.Once
	shared     *Compressor
	sharedErr  error
)

// Shared returns a process-wide Compressor, built on first use.
func Shared() (*Compressor, error) {
	sharedOnce.Do(func() { shared, sharedErr = NewCompressor() })
	return shared, sharedErr
}
