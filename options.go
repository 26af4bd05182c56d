package chirpy

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/aweris/chirpy/internal/compression"
	"github.com/aweris/chirpy/internal/store"
)

// Options configures Open.
type Options struct {
	Logger           *zap.Logger
	CompressionLevel int
	LoadConcurrency  int
}

// Option is a functional option for configuring Open.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Logger:           zap.NewNop(),
		CompressionLevel: compression.LevelOff,
		LoadConcurrency:  store.DefaultConcurrency,
	}
}

// WithLogger sets the logger shared by every store and index.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithCompression sets the zstd level for newly written records (0 = off).
func WithCompression(level int) Option {
	return func(o *Options) { o.CompressionLevel = level }
}

// WithLoadConcurrency sets the number of record files decoded in parallel
// at startup.
func WithLoadConcurrency(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.LoadConcurrency = n
		}
	}
}

// DefaultDataDir returns the XDG data directory for chirpy.
func DefaultDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "chirpy")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".local", "share", "chirpy")
	}
	return ".chirpy"
}
