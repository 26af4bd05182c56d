package store

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/aweris/chirpy/internal/compression"
)

const envelopeVersion = 1

// envelope is the on-disk form of a record: the type tag travels next to
// the payload so it can be checked before the payload is decoded.
type envelope struct {
	Tag     string             `msgpack:"t"`
	Version uint8              `msgpack:"v"`
	Payload msgpack.RawMessage `msgpack:"p"`
}

func encodeRecord[T Record](c *compression.Compressor, rec T) ([]byte, error) {
	payload, err := msgpack.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	data, err := msgpack.Marshal(&envelope{
		Tag:     rec.RecordType(),
		Version: envelopeVersion,
		Payload: payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}

	return c.Compress(data), nil
}

func decodeRecord[T Record](c *compression.Compressor, data []byte, tag string) (T, error) {
	var zero T

	raw, err := c.Decompress(data)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}

	var env envelope
	if err := msgpack.Unmarshal(raw, &env); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	if env.Tag == "" {
		return zero, fmt.Errorf("%w: missing type tag", ErrCorruptData)
	}
	if env.Tag != tag {
		return zero, fmt.Errorf("%w: want %q, got %q", ErrTypeMismatch, tag, env.Tag)
	}
	if env.Version != envelopeVersion {
		return zero, fmt.Errorf("%w: unsupported envelope version %d", ErrCorruptData, env.Version)
	}

	var rec T
	if err := msgpack.Unmarshal(env.Payload, &rec); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}
	return rec, nil
}
