// Package store implements file-backed record persistence.
//
// A Store keeps one file per record inside a single directory and accepts
// a single declared record type:
//
//	dir/
//	  alice.rec        (msgpack envelope, optionally zstd-compressed)
//	  bob.rec
//
// Every file carries the record's type tag. Reads compare the tag with the
// store's declared type before decoding the payload, so a file written by
// another store is rejected with ErrTypeMismatch rather than decoded into
// the wrong shape.
//
// Create never overwrites and Update never creates. LoadAll is the only
// bulk read and it tolerates bad files: it returns every record it could
// decode plus one diagnostic per file it had to skip.
package store

import (
	"errors"
	"fmt"
	"strings"
)

// Record is implemented by every type a Store can persist. RecordType
// must return a non-empty tag that is constant for the type.
//
// Payloads are msgpack-encoded. msgpack decodes time.Time values in the
// local zone, so a type that keeps times in another zone restores it in a
// DecodeMsgpack method (see model.Post).
type Record interface {
	RecordType() string
}

var (
	ErrAlreadyExists = errors.New("record already exists")
	ErrNotFound      = errors.New("record not found")
	ErrTypeMismatch  = errors.New("record type mismatch")
	ErrCorruptData   = errors.New("corrupt record data")
	ErrStorageInit   = errors.New("storage initialization failed")
	ErrInvalidKey    = errors.New("invalid record key")
)

// Error records a failed store operation and the key it was applied to.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return "store " + e.Op + ": " + e.Err.Error()
	}
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// FileExt marks a file as a serialized record.
const FileExt = ".rec"

func validateKey(key string) error {
	switch {
	case key == "", key == ".", key == "..":
		return ErrInvalidKey
	case strings.ContainsAny(key, "/\\\x00"):
		return ErrInvalidKey
	case strings.HasPrefix(key, "."):
		// reserved for temporary files
		return ErrInvalidKey
	}
	return nil
}
