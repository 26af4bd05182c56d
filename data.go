package chirpy

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aweris/chirpy/internal/lock"
	"github.com/aweris/chirpy/internal/store"
)

// Collect reads every record file of the stores under dataDir. Keys are
// slash-separated paths relative to dataDir, e.g. "posts/alice_1700.rec".
// Missing store directories are skipped. Collect does not take the
// directory lock; temp files of in-flight writes are never included.
func Collect(dataDir string) (map[string][]byte, error) {
	files := make(map[string][]byte)
	for _, name := range StoreDirs {
		entries, err := os.ReadDir(filepath.Join(dataDir, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}

		for _, e := range entries {
			if !isRecordFile(e) {
				continue
			}
			data, err := os.ReadFile(filepath.Join(dataDir, name, e.Name()))
			if err != nil {
				return nil, fmt.Errorf("read %s/%s: %w", name, e.Name(), err)
			}
			files[path.Join(name, e.Name())] = data
		}
	}
	return files, nil
}

// Restore replaces the store directories under dataDir with files, as
// returned by Collect. Files are written to a staging directory inside
// dataDir first and each store directory is then swapped in by rename; if a
// write or swap fails, the directories already swapped are put back. Anything
// else kept in a store directory is dropped along with the old records.
//
// Restore takes the directory lock, so it fails with ErrLocked while the
// directory is open. Paths are validated before anything is touched.
func Restore(dataDir string, files map[string][]byte) error {
	for p := range files {
		if err := validateSnapshotPath(p); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	l, err := lock.Acquire(dataDir)
	if err != nil {
		return err
	}
	defer l.Release()

	staging, err := os.MkdirTemp(dataDir, ".restore-")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	for _, name := range StoreDirs {
		if err := os.Mkdir(filepath.Join(staging, name), 0755); err != nil {
			return fmt.Errorf("stage %s: %w", name, err)
		}
	}
	for p, data := range files {
		if err := writeFile(filepath.Join(staging, filepath.FromSlash(p)), data, 0644); err != nil {
			return fmt.Errorf("restore %s: %w", p, err)
		}
	}

	return swapStores(dataDir, staging)
}

// writeFile is replaced in tests.
var writeFile = os.WriteFile

// rename is replaced in tests.
var rename = os.Rename

type swapped struct {
	name   string
	hadOld bool
}

// swapStores moves every store directory of staging into dataDir. Live
// directories are parked in staging and moved back if a later swap fails.
func swapStores(dataDir, staging string) error {
	var done []swapped
	for _, name := range StoreDirs {
		live := filepath.Join(dataDir, name)
		old := filepath.Join(staging, ".old-"+name)

		s := swapped{name: name}
		if _, err := os.Stat(live); err == nil {
			if err := rename(live, old); err != nil {
				return errors.Join(fmt.Errorf("swap %s: %w", name, err), rollback(dataDir, staging, done))
			}
			s.hadOld = true
		}
		if err := rename(filepath.Join(staging, name), live); err != nil {
			return errors.Join(fmt.Errorf("swap %s: %w", name, err), rollback(dataDir, staging, append(done, s)))
		}
		done = append(done, s)
	}
	return nil
}

func rollback(dataDir, staging string, done []swapped) error {
	var errs []error
	for _, s := range slices.Backward(done) {
		live := filepath.Join(dataDir, s.name)
		if err := os.RemoveAll(live); err != nil {
			errs = append(errs, fmt.Errorf("rollback %s: %w", s.name, err))
			continue
		}
		if !s.hadOld {
			continue
		}
		if err := os.Rename(filepath.Join(staging, ".old-"+s.name), live); err != nil {
			errs = append(errs, fmt.Errorf("rollback %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

func validateSnapshotPath(p string) error {
	dir, file, ok := strings.Cut(p, "/")
	switch {
	case !ok, !slices.Contains(StoreDirs, dir):
		return fmt.Errorf("%w: %q", ErrInvalidPath, p)
	case file == "", strings.HasPrefix(file, "."), strings.ContainsAny(file, "/\\\x00"):
		return fmt.Errorf("%w: %q", ErrInvalidPath, p)
	case filepath.Ext(file) != store.FileExt:
		return fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return nil
}

func isRecordFile(e fs.DirEntry) bool {
	return e.Type().IsRegular() &&
		!strings.HasPrefix(e.Name(), ".") &&
		filepath.Ext(e.Name()) == store.FileExt
}
