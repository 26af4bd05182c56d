package chirpy

import (
	"errors"

	"github.com/aweris/chirpy/internal/index"
	"github.com/aweris/chirpy/internal/lock"
	"github.com/aweris/chirpy/internal/store"
)

var (
	ErrLocked       = lock.ErrLocked
	ErrStorageInit  = store.ErrStorageInit
	ErrPersistence  = index.ErrPersistence
	ErrInvalidPath  = errors.New("chirpy: invalid snapshot path")
	ErrDataDirEmpty = errors.New("chirpy: data directory not set")
)
