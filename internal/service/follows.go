package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/aweris/chirpy/internal/index"
)

// Follows enforces the preconditions index.Follows leaves to its callers:
// no self edges, no duplicates, and no removal of missing edges.
type Follows struct {
	follows  *index.Follows
	accounts *index.Accounts
	log      *zap.Logger
}

func NewFollows(follows *index.Follows, accounts *index.Accounts, log *zap.Logger) *Follows {
	if log == nil {
		log = zap.NewNop()
	}
	return &Follows{
		follows:  follows,
		accounts: accounts,
		log:      log.With(zap.String("service", "follows")),
	}
}

func (f *Follows) Follow(follower, target string) error {
	switch {
	case follower == target:
		return ErrSelfFollow
	case !f.accounts.Exists(follower):
		return fmt.Errorf("follow as %q: %w", follower, ErrUnknownUser)
	case !f.accounts.Exists(target):
		return fmt.Errorf("follow %q: %w", target, ErrUnknownUser)
	case f.follows.Contains(follower, target):
		return fmt.Errorf("%s -> %s: %w", follower, target, ErrAlreadyFollowing)
	}

	if err := f.follows.AddEdge(follower, target); err != nil {
		return err
	}
	f.log.Info("followed", zap.String("follower", follower), zap.String("followee", target))
	return nil
}

func (f *Follows) Unfollow(follower, target string) error {
	switch {
	case follower == target:
		return ErrSelfFollow
	case !f.follows.Contains(follower, target):
		return fmt.Errorf("%s -> %s: %w", follower, target, ErrNotFollowing)
	}

	if err := f.follows.RemoveEdge(follower, target); err != nil {
		return err
	}
	f.log.Info("unfollowed", zap.String("follower", follower), zap.String("followee", target))
	return nil
}

func (f *Follows) IsFollowing(follower, target string) bool {
	return f.follows.Contains(follower, target)
}

// Following returns the users username follows.
func (f *Follows) Following(username string) []string {
	return f.follows.Following(username)
}

// Followers returns the users following username.
func (f *Follows) Followers(username string) []string {
	return f.follows.Followers(username)
}
