package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/iter"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/aweris/chirpy/internal/compression"
)

// DefaultConcurrency bounds the number of files decoded in parallel by LoadAll.
const DefaultConcurrency = 4

type options struct {
	logger           *zap.Logger
	compressionLevel int
	concurrency      int
}

// Option configures a Store.
type Option func(*options)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCompression enables zstd compression of new record files.
// Level 0 disables it; existing compressed files are always readable.
func WithCompression(level int) Option {
	return func(o *options) { o.compressionLevel = level }
}

// WithConcurrency sets the number of files LoadAll decodes in parallel.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// Store persists records of type T, one file per record key.
//
// Create, Update and Delete are serialized by an internal mutex. Callers
// that pair a store write with an in-memory change still need their own
// lock around both.
type Store[T Record] struct {
	dir         string
	tag         string
	compressor  *compression.Compressor
	concurrency int
	log         *zap.Logger

	mu sync.Mutex
}

// New opens a store for T rooted at dir, creating the directory and its
// parents if needed. T must be a non-pointer type with a non-empty type
// tag that msgpack can encode.
func New[T Record](dir string, opts ...Option) (*Store[T], error) {
	o := &options{
		logger:      zap.NewNop(),
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(o)
	}

	var zero T
	typ := reflect.TypeFor[T]()
	if typ.Kind() == reflect.Pointer || typ.Kind() == reflect.Interface {
		return nil, initError(fmt.Errorf("record type %s must be a concrete value type", typ))
	}
	tag := zero.RecordType()
	if tag == "" {
		return nil, initError(fmt.Errorf("record type %s has an empty type tag", typ))
	}
	if _, err := msgpack.Marshal(zero); err != nil {
		return nil, initError(fmt.Errorf("record type %s is not serializable: %v", typ, err))
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, initError(fmt.Errorf("create directory %s: %v", dir, err))
	}

	compressor, err := compression.NewCompressor(o.compressionLevel)
	if err != nil {
		return nil, initError(err)
	}

	log := o.logger.With(zap.String("store", tag), zap.String("dir", dir))
	log.Debug("store opened")

	return &Store[T]{
		dir:         dir,
		tag:         tag,
		compressor:  compressor,
		concurrency: o.concurrency,
		log:         log,
	}, nil
}

func initError(err error) error {
	return &Error{Op: "init", Err: fmt.Errorf("%w: %v", ErrStorageInit, err)}
}

// Dir returns the directory holding the record files.
func (s *Store[T]) Dir() string { return s.dir }

// Tag returns the declared record type tag.
func (s *Store[T]) Tag() string { return s.tag }

// Create writes rec under key. It fails with ErrAlreadyExists if the key
// is taken.
func (s *Store[T]) Create(key string, rec T) error {
	if err := validateKey(key); err != nil {
		return &Error{Op: "create", Key: key, Err: err}
	}
	data, err := encodeRecord(s.compressor, rec)
	if err != nil {
		return &Error{Op: "create", Key: key, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.recordPath(key)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return &Error{Op: "create", Key: key, Err: ErrAlreadyExists}
		}
		return &Error{Op: "create", Key: key, Err: err}
	}

	_, werr := f.Write(data)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(path)
		return &Error{Op: "create", Key: key, Err: werr}
	}

	s.log.Debug("record created", zap.String("key", key))
	return nil
}

// Read returns the record stored under key.
func (s *Store[T]) Read(key string) (T, error) {
	var zero T
	if err := validateKey(key); err != nil {
		return zero, &Error{Op: "read", Key: key, Err: err}
	}

	rec, err := s.readFile(s.recordPath(key))
	if err != nil {
		return zero, &Error{Op: "read", Key: key, Err: err}
	}
	return rec, nil
}

// Update replaces the record stored under key. It fails with ErrNotFound
// if the key does not exist.
func (s *Store[T]) Update(key string, rec T) error {
	if err := validateKey(key); err != nil {
		return &Error{Op: "update", Key: key, Err: err}
	}
	data, err := encodeRecord(s.compressor, rec)
	if err != nil {
		return &Error{Op: "update", Key: key, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.recordPath(key)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Error{Op: "update", Key: key, Err: ErrNotFound}
		}
		return &Error{Op: "update", Key: key, Err: err}
	}

	if err := s.replaceFile(path, data); err != nil {
		return &Error{Op: "update", Key: key, Err: err}
	}

	s.log.Debug("record updated", zap.String("key", key))
	return nil
}

// Delete removes the record stored under key.
func (s *Store[T]) Delete(key string) error {
	if err := validateKey(key); err != nil {
		return &Error{Op: "delete", Key: key, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.recordPath(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Error{Op: "delete", Key: key, Err: ErrNotFound}
		}
		return &Error{Op: "delete", Key: key, Err: err}
	}

	s.log.Debug("record deleted", zap.String("key", key))
	return nil
}

type loadResult[T Record] struct {
	rec T
	err error
}

// LoadAll decodes every record file in the directory, in directory order.
// Files that cannot be decoded are skipped; each one yields a diagnostic
// in the second return value. LoadAll never fails as a whole: an
// unreadable directory gives an empty result and a single diagnostic.
func (s *Store[T]) LoadAll() ([]T, []error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		err = &Error{Op: "load", Err: err}
		s.log.Warn("failed to read store directory", zap.Error(err))
		return []T{}, []error{err}
	}

	files := make([]fs.DirEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		files = append(files, entry)
	}

	mapper := iter.Mapper[fs.DirEntry, loadResult[T]]{MaxGoroutines: s.concurrency}
	results := mapper.Map(files, func(entry *fs.DirEntry) loadResult[T] {
		name := (*entry).Name()
		key, ok := strings.CutSuffix(name, FileExt)
		if !ok {
			return loadResult[T]{err: &Error{Op: "load", Key: name, Err: fmt.Errorf("%w: unexpected file", ErrCorruptData)}}
		}
		rec, err := s.readFile(filepath.Join(s.dir, name))
		if err != nil {
			return loadResult[T]{err: &Error{Op: "load", Key: key, Err: err}}
		}
		return loadResult[T]{rec: rec}
	})

	records := make([]T, 0, len(results))
	var diags []error
	for _, r := range results {
		if r.err != nil {
			s.log.Warn("skipping unreadable record", zap.Error(r.err))
			diags = append(diags, r.err)
			continue
		}
		records = append(records, r.rec)
	}

	s.log.Debug("store loaded", zap.Int("records", len(records)), zap.Int("skipped", len(diags)))
	return records, diags
}

// Keys lists the record keys currently on disk.
func (s *Store[T]) Keys() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &Error{Op: "keys", Err: err}
	}
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if key, ok := strings.CutSuffix(entry.Name(), FileExt); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Close releases the compressor.
func (s *Store[T]) Close() error {
	return s.compressor.Close()
}

func (s *Store[T]) readFile(path string) (T, error) {
	var zero T
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return zero, ErrNotFound
		}
		return zero, err
	}
	return decodeRecord[T](s.compressor, data, s.tag)
}

// replaceFile writes data next to path and renames it into place, so a
// failed write never leaves a truncated record behind.
func (s *Store[T]) replaceFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	_, werr := tmp.Write(data)
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Chmod(tmpName, 0644)
	}
	if werr == nil {
		werr = os.Rename(tmpName, path)
	}
	if werr != nil {
		_ = os.Remove(tmpName)
		return werr
	}
	return nil
}

// recordPath returns the filesystem path for a record key.
func (s *Store[T]) recordPath(key string) string {
	return filepath.Join(s.dir, key+FileExt)
}
