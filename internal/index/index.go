// Package index keeps in-memory views of the record stores.
//
// Each index is rebuilt once at startup from its store and then kept in
// sync on every mutation: the in-memory change is applied first and the
// store write follows under the same lock. A failed store write is
// reported to the caller (wrapped in ErrPersistence) but the in-memory
// change stays, so the record is visible until the process exits even if
// it never reached disk. Reads never touch the store.
package index

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aweris/chirpy/internal/store"
)

// ErrPersistence marks a write-through failure. The in-memory index has
// already been updated when it is returned.
var ErrPersistence = errors.New("write-through failed")

// Persister is the subset of store.Store an index writes through to.
type Persister[T store.Record] interface {
	Create(key string, rec T) error
	Update(key string, rec T) error
	Delete(key string) error
	LoadAll() ([]T, []error)
}

type options struct {
	logger *zap.Logger
	now    func() time.Time
}

// Option configures an index.
type Option func(*options)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the clock used to stamp new posts.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(component string, opts []Option) *options {
	o := &options{
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With(zap.String("component", component))
	return o
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

func clone[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}
