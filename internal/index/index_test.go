package index

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aweris/chirpy/internal/store"
)

var errDiskFull = errors.New("disk full")

// fakeStore records writes in memory. When err is set every write fails.
type fakeStore[T store.Record] struct {
	loaded  []T
	diags   []error
	err     error
	created map[string]T
	updated map[string]T
	deleted []string
}

func newFakeStore[T store.Record]() *fakeStore[T] {
	return &fakeStore[T]{
		created: make(map[string]T),
		updated: make(map[string]T),
	}
}

func (f *fakeStore[T]) Create(key string, rec T) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.created[key]; ok {
		return store.ErrAlreadyExists
	}
	f.created[key] = rec
	return nil
}

func (f *fakeStore[T]) Update(key string, rec T) error {
	if f.err != nil {
		return f.err
	}
	f.updated[key] = rec
	return nil
}

func (f *fakeStore[T]) Delete(key string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStore[T]) LoadAll() ([]T, []error) {
	return f.loaded, f.diags
}

func openStore[T store.Record](t *testing.T, dir string) *store.Store[T] {
	t.Helper()
	s, err := store.New[T](dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func tempStoreDir(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}
