package chirpy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/aweris/chirpy/internal/index"
	"github.com/aweris/chirpy/internal/lock"
	"github.com/aweris/chirpy/internal/model"
	"github.com/aweris/chirpy/internal/service"
	"github.com/aweris/chirpy/internal/store"
)

// Store directories under the data directory.
const (
	AccountsDir = "accounts"
	FollowsDir  = "follows"
	PostsDir    = "posts"
)

// StoreDirs lists every store directory in a data directory.
var StoreDirs = []string{AccountsDir, FollowsDir, PostsDir}

// Chirpy is an opened data directory with its indexes loaded.
type Chirpy struct {
	Users   *service.Users
	Posts   *service.Posts
	Follows *service.Follows
	Search  *service.Search

	dir     string
	lock    *lock.Lock
	log     *zap.Logger
	closers []func() error
}

// Open locks dataDir, opens the account, follow and post stores under it
// and loads them into memory. Records that fail to decode are logged and
// skipped; a store that cannot be initialized aborts Open.
func Open(dataDir string, opts ...Option) (*Chirpy, error) {
	if dataDir == "" {
		return nil, ErrDataDirEmpty
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	log := o.Logger

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create data dir: %w", ErrStorageInit, err)
	}

	l, err := lock.Acquire(dataDir)
	if err != nil {
		return nil, err
	}

	c := &Chirpy{dir: dataDir, lock: l, log: log}

	storeOpts := []store.Option{
		store.WithLogger(log),
		store.WithCompression(o.CompressionLevel),
		store.WithConcurrency(o.LoadConcurrency),
	}

	accountStore, err := openStore[model.Account](c, AccountsDir, storeOpts)
	if err != nil {
		return nil, c.abort(err)
	}
	followStore, err := openStore[model.Follow](c, FollowsDir, storeOpts)
	if err != nil {
		return nil, c.abort(err)
	}
	postStore, err := openStore[model.Post](c, PostsDir, storeOpts)
	if err != nil {
		return nil, c.abort(err)
	}

	accounts := index.NewAccounts(accountStore, index.WithLogger(log))
	follows := index.NewFollows(followStore, index.WithLogger(log))
	posts := index.NewPosts(postStore, index.WithLogger(log))

	nAccounts := accounts.Load()
	follows.Load()
	nPosts := posts.Load()

	c.Users = service.NewUsers(accounts, log)
	c.Posts = service.NewPosts(posts, follows, accounts, log)
	c.Follows = service.NewFollows(follows, accounts, log)
	c.Search = service.NewSearch(posts)

	log.Info("data directory opened",
		zap.String("dir", dataDir),
		zap.Int("accounts", nAccounts),
		zap.Int("posts", nPosts),
	)
	return c, nil
}

func openStore[T store.Record](c *Chirpy, name string, opts []store.Option) (*store.Store[T], error) {
	s, err := store.New[T](filepath.Join(c.dir, name), opts...)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", name, err)
	}
	c.closers = append(c.closers, s.Close)
	return s, nil
}

// abort undoes a partial Open.
func (c *Chirpy) abort(err error) error {
	return errors.Join(err, c.Close())
}

// Dir returns the data directory.
func (c *Chirpy) Dir() string { return c.dir }

// Close closes the stores and releases the directory lock.
func (c *Chirpy) Close() error {
	var errs []error
	for _, closeFn := range c.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil

	if c.lock != nil {
		if err := c.lock.Release(); err != nil {
			errs = append(errs, err)
		}
		c.lock = nil
	}
	return errors.Join(errs...)
}
