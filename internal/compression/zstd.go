// Package compression wraps zstd for record files and snapshot layers.
//
// Compressed output always starts with the zstd frame magic, so readers can
// tell compressed and plain data apart without extra framing. Plain data
// passes through Decompress untouched.
package compression

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Levels accepted by NewCompressor. Zero disables compression.
const (
	LevelOff     = 0
	LevelFastest = 1
	LevelDefault = 2
	LevelBetter  = 3
)

// minSize is the smallest payload worth compressing.
const minSize = 128

var magic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// ErrDisabled is returned by Frame on a compressor created with LevelOff.
var ErrDisabled = errors.New("compression disabled")

type Compressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	enabled bool
}

// NewCompressor returns a compressor for the given level. A disabled
// compressor still decodes zstd frames it is handed.
func NewCompressor(level int) (*Compressor, error) {
	decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	if level == LevelOff {
		return &Compressor{decoder: decoder}, nil
	}

	var encoderLevel zstd.EncoderLevel
	switch level {
	case LevelFastest:
		encoderLevel = zstd.SpeedFastest
	case LevelDefault:
		encoderLevel = zstd.SpeedDefault
	case LevelBetter:
		encoderLevel = zstd.SpeedBetterCompression
	default:
		decoder.Close()
		return nil, fmt.Errorf("unsupported compression level %d", level)
	}

	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(encoderLevel),
		zstd.WithEncoderConcurrency(1),
		zstd.WithZeroFrames(true),
	)
	if err != nil {
		decoder.Close()
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	return &Compressor{
		encoder: encoder,
		decoder: decoder,
		enabled: true,
	}, nil
}

// Enabled reports whether Compress may produce zstd frames.
func (c *Compressor) Enabled() bool {
	return c.enabled
}

// Compress returns data as a zstd frame when that makes it smaller,
// otherwise data itself.
func (c *Compressor) Compress(data []byte) []byte {
	if !c.enabled || len(data) < minSize {
		return data
	}

	compressed := c.encoder.EncodeAll(data, make([]byte, 0, len(data)))
	if len(compressed) >= len(data) {
		return data
	}
	return compressed
}

// Frame encodes data as a zstd frame regardless of its size.
func (c *Compressor) Frame(data []byte) ([]byte, error) {
	if !c.enabled {
		return nil, ErrDisabled
	}
	return c.encoder.EncodeAll(data, nil), nil
}

// Decompress decodes a zstd frame. Data without the frame magic is
// returned as is.
func (c *Compressor) Decompress(data []byte) ([]byte, error) {
	if !IsCompressed(data) {
		return data, nil
	}

	decompressed, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return decompressed, nil
}

func (c *Compressor) Close() error {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
	return nil
}

// IsCompressed reports whether data starts with the zstd frame magic.
func IsCompressed(data []byte) bool {
	return bytes.HasPrefix(data, magic)
}
