package lock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockIsExclusive(t *testing.T) {
	dir := t.TempDir()

	l, err := Acquire(dir)
	require.NoError(t, err)

	_, err = Acquire(dir)
	assert.ErrorIs(t, err, ErrLocked)

	require.NoError(t, l.Release())

	again, err := Acquire(dir)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestAcquireMissingDirectory(t *testing.T) {
	_, err := Acquire(t.TempDir() + "/missing")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrLocked)
}

func TestLeftoverLockFileDoesNotBlock(t *testing.T) {
	dir := t.TempDir()
	// what a process that died while holding the lock leaves behind
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), nil, 0644))

	l, err := Acquire(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName), l.Path())

	_, err = Acquire(dir)
	assert.ErrorIs(t, err, ErrLocked)
	require.NoError(t, l.Release())

	assert.FileExists(t, filepath.Join(dir, FileName))
	again, err := Acquire(dir)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}
