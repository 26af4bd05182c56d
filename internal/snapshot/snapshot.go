// Package snapshot ships the record files of a data directory to an OCI
// registry and back.
//
// A snapshot is an image with one zstd layer per store directory
// (accounts, follows, posts). The image config carries labels with the
// store list and a content hash that Pull checks after unpacking.
// Upload ordering and authentication follow go-containerregistry:
// layers, then config, then manifest; credentials from the Docker
// keychain unless set explicitly.
package snapshot

import "errors"

const (
	LabelStores = "dev.chirpy.stores"
	LabelHash   = "dev.chirpy.hash"
	LabelFiles  = "dev.chirpy.files"
)

var (
	ErrNotSnapshot  = errors.New("image is not a chirpy snapshot")
	ErrHashMismatch = errors.New("snapshot content hash mismatch")
	ErrBadLayer     = errors.New("malformed snapshot layer")
)
