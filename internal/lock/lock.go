// Package lock guards a data directory against concurrent use by more
// than one process.
package lock

import (
	"errors"
	"os"
)

// FileName is the lock file created inside a locked directory.
const FileName = "LOCK"

// ErrLocked is returned when another process holds the directory lock.
var ErrLocked = errors.New("directory already in use by another chirpy instance")

// Lock is a held directory lock. The underlying file stays open until
// Release is called.
type Lock struct {
	f *os.File
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.f.Name() }
