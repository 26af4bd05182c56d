package index

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aweris/chirpy/internal/model"
)

func contents(posts []model.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Content
	}
	return out
}

func TestPostsAddKeepsInsertionOrder(t *testing.T) {
	fs := newFakeStore[model.Post]()
	posts := NewPosts(fs)

	_, err := posts.Add("alice", "hello")
	require.NoError(t, err)
	_, err = posts.Add("bob", "hi there")
	require.NoError(t, err)
	_, err = posts.Add("alice", "world")
	require.NoError(t, err)

	assert.Equal(t, []string{"hello", "world"}, contents(posts.ByOwner("alice")))
	assert.ElementsMatch(t, []string{"hello", "world", "hi there"}, contents(posts.All()))
	assert.Equal(t, 3, posts.Len())
	assert.Len(t, fs.created, 3)
}

func TestPostsByOwnerReturnsCopy(t *testing.T) {
	posts := NewPosts(newFakeStore[model.Post]())
	_, _ = posts.Add("alice", "hello")

	got := posts.ByOwner("alice")
	got[0].Content = "tampered"
	_ = append(got, model.Post{Content: "extra"})

	assert.Equal(t, []string{"hello"}, contents(posts.ByOwner("alice")))
}

func TestPostsUnknownOwner(t *testing.T) {
	posts := NewPosts(newFakeStore[model.Post]())

	got := posts.ByOwner("nobody")
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, posts.All())
}

func TestPostsSurviveWriteFailure(t *testing.T) {
	fs := newFakeStore[model.Post]()
	fs.err = errDiskFull
	posts := NewPosts(fs)

	post, err := posts.Add("alice", "hello")
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, "hello", post.Content)

	assert.Equal(t, []string{"hello"}, contents(posts.ByOwner("alice")))
}

func TestPostsTimestampsStrictlyIncrease(t *testing.T) {
	frozen := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	fs := newFakeStore[model.Post]()
	posts := NewPosts(fs, WithClock(func() time.Time { return frozen }))

	a, err := posts.Add("alice", "one")
	require.NoError(t, err)
	b, err := posts.Add("alice", "two")
	require.NoError(t, err)

	assert.True(t, b.CreatedAt.After(a.CreatedAt))
	assert.NotEqual(t, a.Key(), b.Key())
	assert.NotEqual(t, a.ID, b.ID)
}

func TestPostsLoadTwiceDuplicates(t *testing.T) {
	fs := newFakeStore[model.Post]()
	fs.loaded = []model.Post{
		{ID: "1", Owner: "alice", Content: "hello", CreatedAt: time.Unix(10, 0)},
		{ID: "2", Owner: "bob", Content: "yo", CreatedAt: time.Unix(20, 0)},
	}
	posts := NewPosts(fs)

	assert.Equal(t, 2, posts.Load())
	assert.Equal(t, 2, posts.Len())

	// documented quirk: Load is not idempotent
	posts.Load()
	assert.Equal(t, 4, posts.Len())
}

func TestPostsNewPostsAfterLoadedOnes(t *testing.T) {
	fs := newFakeStore[model.Post]()
	loaded := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	fs.loaded = []model.Post{{ID: "1", Owner: "alice", Content: "future", CreatedAt: loaded}}

	posts := NewPosts(fs, WithClock(func() time.Time { return loaded.Add(-time.Hour) }))
	posts.Load()

	p, err := posts.Add("alice", "now")
	require.NoError(t, err)
	assert.True(t, p.CreatedAt.After(loaded))
}

func TestPostsPersistAcrossReload(t *testing.T) {
	dir := tempStoreDir(t, "posts")

	first := NewPosts(openStore[model.Post](t, dir))
	_, err := first.Add("alice", "hello")
	require.NoError(t, err)
	_, err = first.Add("alice", "world")
	require.NoError(t, err)

	second := NewPosts(openStore[model.Post](t, dir))
	assert.Equal(t, 2, second.Load())
	assert.Equal(t, []string{"hello", "world"}, contents(second.ByOwner("alice")))

	// reloaded posts are identical to the ones handed out by Add
	assert.Equal(t, first.ByOwner("alice"), second.ByOwner("alice"))
}

func TestPostsStampInUTC(t *testing.T) {
	zone := time.FixedZone("UTC-3", -3*60*60)
	posts := NewPosts(newFakeStore[model.Post](), WithClock(func() time.Time {
		return time.Date(2024, 1, 1, 9, 0, 0, 0, zone)
	}))

	p, err := posts.Add("alice", "hello")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, p.CreatedAt.Location())
	assert.Equal(t, 12, p.CreatedAt.Hour())
}
