package service

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aweris/chirpy/internal/index"
	"github.com/aweris/chirpy/internal/model"
	"github.com/aweris/chirpy/internal/store"
)

type fixture struct {
	users   *Users
	posts   *Posts
	follows *Follows
	search  *Search

	accountIdx *index.Accounts
	postIdx    *index.Posts
}

// clock advances one second per call so timelines have a stable order.
func clock() func() time.Time {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		now = now.Add(time.Second)
		return now
	}
}

func openStore[T store.Record](t *testing.T, dir string) *store.Store[T] {
	t.Helper()
	s, err := store.New[T](dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newFixture(t *testing.T, users ...string) *fixture {
	t.Helper()
	root := t.TempDir()

	accounts := index.NewAccounts(openStore[model.Account](t, filepath.Join(root, "accounts")))
	follows := index.NewFollows(openStore[model.Follow](t, filepath.Join(root, "follows")))
	posts := index.NewPosts(openStore[model.Post](t, filepath.Join(root, "posts")), index.WithClock(clock()))

	f := &fixture{
		users:      NewUsers(accounts, nil),
		posts:      NewPosts(posts, follows, accounts, nil),
		follows:    NewFollows(follows, accounts, nil),
		search:     NewSearch(posts),
		accountIdx: accounts,
		postIdx:    posts,
	}
	for _, u := range users {
		require.NoError(t, f.users.Register(u, "secret"))
	}
	return f
}

func contents(posts []model.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Content
	}
	return out
}
