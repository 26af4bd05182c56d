package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/aweris/chirpy/internal/compression"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/types"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

const (
	DefaultConcurrency = 4
	maxAttempts        = 3
)

type options struct {
	auth        Authenticator
	insecure    bool
	concurrency int
	level       int
	logger      *zap.Logger
}

// Option configures a Remote.
type Option func(*options)

// WithAuth sets custom authentication.
func WithAuth(auth Authenticator) Option {
	return func(o *options) { o.auth = auth }
}

// WithInsecure allows plain HTTP registries.
func WithInsecure(insecure bool) Option {
	return func(o *options) { o.insecure = insecure }
}

// WithConcurrency sets the number of parallel layer transfers.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithCompression sets the zstd level of pushed layers. Layers are always
// zstd frames, so compression.LevelOff is rejected by NewRemote.
func WithCompression(level int) Option {
	return func(o *options) { o.level = level }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

type Remote struct {
	ref   name.Reference
	opts  options
	codec *compression.Compressor
	log   *zap.Logger
}

// NewRemote creates a remote from a standard Docker ref (e.g., "ghcr.io/me/chirpy-data:main").
func NewRemote(imageRef string, opts ...Option) (*Remote, error) {
	o := options{
		concurrency: DefaultConcurrency,
		level:       compression.LevelDefault,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	nameOpts := []name.Option{name.WithDefaultTag("latest")}
	if o.insecure {
		nameOpts = append(nameOpts, name.Insecure)
	}
	ref, err := name.ParseReference(imageRef, nameOpts...)
	if err != nil {
		return nil, fmt.Errorf("invalid image ref %q: %w", imageRef, err)
	}

	if o.level == compression.LevelOff {
		return nil, fmt.Errorf("snapshot layers need compression: %w", compression.ErrDisabled)
	}
	codec, err := compression.NewCompressor(o.level)
	if err != nil {
		return nil, err
	}

	return &Remote{
		ref:   ref,
		opts:  o,
		codec: codec,
		log:   o.logger.With(zap.String("component", "snapshot"), zap.String("ref", ref.String())),
	}, nil
}

// Close releases the compressor. Remotes derived with WithTag share it, so
// only the Remote returned by NewRemote is closed.
func (r *Remote) Close() error {
	return r.codec.Close()
}

func (r *Remote) String() string   { return r.ref.String() }
func (r *Remote) Registry() string { return r.ref.Context().RegistryStr() }
func (r *Remote) Tag() string      { return r.ref.Identifier() }

// WithTag returns a new Remote pointing at tag in the same repository. It
// shares r's compressor.
func (r *Remote) WithTag(tag string) (*Remote, error) {
	var nameOpts []name.Option
	if r.opts.insecure {
		nameOpts = append(nameOpts, name.Insecure)
	}
	newRef, err := name.NewTag(r.ref.Context().String()+":"+tag, nameOpts...)
	if err != nil {
		return nil, fmt.Errorf("invalid tag %q: %w", tag, err)
	}
	return &Remote{
		ref:   newRef,
		opts:  r.opts,
		codec: r.codec,
		log:   r.opts.logger.With(zap.String("component", "snapshot"), zap.String("ref", newRef.String())),
	}, nil
}

// fileLayer implements v1.Layer with zstd compression for remote transfer
type fileLayer struct {
	compressed   []byte
	uncompressed []byte
}

func (r *Remote) newFileLayer(data []byte) (*fileLayer, error) {
	compressed, err := r.codec.Frame(data)
	if err != nil {
		return nil, err
	}
	return &fileLayer{compressed: compressed, uncompressed: data}, nil
}

func (l *fileLayer) Digest() (v1.Hash, error) {
	h, _, err := v1.SHA256(bytes.NewReader(l.compressed))
	return h, err
}

func (l *fileLayer) DiffID() (v1.Hash, error) {
	h, _, err := v1.SHA256(bytes.NewReader(l.uncompressed))
	return h, err
}

func (l *fileLayer) Compressed() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(l.compressed)), nil
}
func (l *fileLayer) Uncompressed() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(l.uncompressed)), nil
}
func (l *fileLayer) Size() (int64, error)                { return int64(len(l.compressed)), nil }
func (l *fileLayer) MediaType() (types.MediaType, error) { return types.OCILayerZStd, nil }

// Push uploads files as a snapshot image and returns the manifest digest.
// Keys are slash-separated paths whose first element names the store.
func (r *Remote) Push(ctx context.Context, files map[string][]byte) (string, error) {
	byStore := GroupByStore(files)
	stores := slices.Sorted(maps.Keys(byStore))

	layers := make([]v1.Layer, 0, len(stores))
	var totalRaw, totalCompressed int64
	for _, s := range stores {
		data, err := PackLayer(byStore[s])
		if err != nil {
			return "", fmt.Errorf("pack %s: %w", s, err)
		}
		layer, err := r.newFileLayer(data)
		if err != nil {
			return "", fmt.Errorf("compress %s: %w", s, err)
		}
		totalRaw += int64(len(data))
		totalCompressed += int64(len(layer.compressed))
		layers = append(layers, layer)
	}

	r.log.Info("pushing snapshot",
		zap.Int("files", len(files)),
		zap.Strings("stores", stores),
		zap.Int64("raw_bytes", totalRaw),
		zap.Int64("compressed_bytes", totalCompressed),
	)

	img, err := buildImage(layers, stores, files)
	if err != nil {
		return "", fmt.Errorf("build image: %w", err)
	}

	if err := r.pushImage(ctx, img); err != nil {
		return "", fmt.Errorf("push image: %w", err)
	}

	digest, err := img.Digest()
	if err != nil {
		return "", fmt.Errorf("image digest: %w", err)
	}
	r.log.Info("snapshot pushed", zap.String("digest", digest.String()))
	return digest.String(), nil
}

func buildImage(layers []v1.Layer, stores []string, files map[string][]byte) (v1.Image, error) {
	img := empty.Image

	if len(layers) > 0 {
		var err error
		img, err = mutate.AppendLayers(img, layers...)
		if err != nil {
			return nil, err
		}
	}

	cfg, err := img.ConfigFile()
	if err != nil {
		return nil, err
	}

	storesJSON, err := json.Marshal(stores)
	if err != nil {
		return nil, err
	}

	cfg.Config.Labels = map[string]string{
		LabelStores: string(storesJSON),
		LabelHash:   ContentHash(files),
		LabelFiles:  strconv.Itoa(len(files)),
	}

	return mutate.ConfigFile(img, cfg)
}

func (r *Remote) pushImage(ctx context.Context, img v1.Image) error {
	options := r.remoteOptions(ctx)
	options = append(options, remote.WithJobs(r.opts.concurrency))
	_, err := retry(ctx, maxAttempts, func() (struct{}, error) {
		return struct{}{}, remote.Write(r.ref, img, options...)
	})
	return err
}

// Pull downloads the snapshot and returns its files, verified against the
// content hash label.
func (r *Remote) Pull(ctx context.Context) (map[string][]byte, error) {
	img, err := retry(ctx, maxAttempts, func() (v1.Image, error) {
		return remote.Image(r.ref, r.remoteOptions(ctx)...)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}

	cfg, err := img.ConfigFile()
	if err != nil {
		return nil, fmt.Errorf("get config: %w", err)
	}

	wantHash := cfg.Config.Labels[LabelHash]
	if wantHash == "" {
		return nil, fmt.Errorf("%w: missing %s label", ErrNotSnapshot, LabelHash)
	}

	layers, err := img.Layers()
	if err != nil {
		return nil, fmt.Errorf("get layers: %w", err)
	}

	r.log.Info("pulling snapshot", zap.Int("layers", len(layers)))

	var mu sync.Mutex
	files := make(map[string][]byte)

	p := pool.New().WithMaxGoroutines(r.opts.concurrency).WithContext(ctx).WithCancelOnError()

	for _, layer := range layers {
		p.Go(func(ctx context.Context) error {
			rc, err := layer.Uncompressed()
			if err != nil {
				return fmt.Errorf("read layer: %w", err)
			}
			data, err := io.ReadAll(rc)
			if cerr := rc.Close(); cerr != nil {
				return fmt.Errorf("close layer: %w", cerr)
			}
			if err != nil {
				return fmt.Errorf("read layer: %w", err)
			}

			unpacked, err := UnpackLayer(data)
			if err != nil {
				return fmt.Errorf("unpack layer: %w", err)
			}

			mu.Lock()
			maps.Copy(files, unpacked)
			mu.Unlock()
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}

	if got := ContentHash(files); got != wantHash {
		return nil, fmt.Errorf("%w: want %s, got %s", ErrHashMismatch, wantHash, got)
	}

	r.log.Info("snapshot pulled", zap.Int("files", len(files)))
	return files, nil
}

func (r *Remote) remoteOptions(ctx context.Context) []remote.Option {
	opts := []remote.Option{remote.WithContext(ctx)}
	if r.opts.auth != nil {
		username, password, err := r.opts.auth.Authenticate(r.Registry())
		if err == nil && username != "" {
			return append(opts, remote.WithAuth(&authn.Basic{
				Username: username,
				Password: password,
			}))
		}
	}
	return append(opts, remote.WithAuthFromKeychain(authn.DefaultKeychain))
}

func retry[T any](ctx context.Context, maxAttempts int, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for i := range maxAttempts {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if i < maxAttempts-1 {
			delay := time.Duration(1<<i) * 500 * time.Millisecond // 500ms, 1s, 2s, 4s...
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return zero, lastErr
}
