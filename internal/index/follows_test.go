package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aweris/chirpy/internal/model"
	"github.com/aweris/chirpy/internal/store"
)

// assertConsistent checks that forward and reverse lists describe the
// same edge set.
func assertConsistent(t *testing.T, f *Follows) {
	t.Helper()
	f.mu.RLock()
	defer f.mu.RUnlock()

	count := func(m map[string][]string, k, v string) int {
		n := 0
		for _, x := range m[k] {
			if x == v {
				n++
			}
		}
		return n
	}
	for src, targets := range f.forward {
		for _, dst := range targets {
			assert.Equal(t, count(f.forward, src, dst), count(f.reverse, dst, src), "edge %s -> %s", src, dst)
		}
	}
	for dst, sources := range f.reverse {
		for _, src := range sources {
			assert.Equal(t, count(f.reverse, dst, src), count(f.forward, src, dst), "edge %s -> %s", src, dst)
		}
	}
}

func TestFollowsAddAndRemove(t *testing.T) {
	fs := newFakeStore[model.Follow]()
	follows := NewFollows(fs)

	require.NoError(t, follows.AddEdge("alice", "bob"))
	assert.Equal(t, []string{"bob"}, follows.Following("alice"))
	assert.Equal(t, []string{"alice"}, follows.Followers("bob"))
	assert.True(t, follows.Contains("alice", "bob"))
	assert.False(t, follows.Contains("bob", "alice"))
	assert.Contains(t, fs.created, "alice,bob")
	assertConsistent(t, follows)

	require.NoError(t, follows.RemoveEdge("alice", "bob"))
	assert.Empty(t, follows.Following("alice"))
	assert.Empty(t, follows.Followers("bob"))
	assert.Equal(t, []string{"alice,bob"}, fs.deleted)
	assertConsistent(t, follows)
}

func TestFollowsManyEdges(t *testing.T) {
	follows := NewFollows(newFakeStore[model.Follow]())

	require.NoError(t, follows.AddEdge("alice", "bob"))
	require.NoError(t, follows.AddEdge("alice", "carol"))
	require.NoError(t, follows.AddEdge("carol", "bob"))
	require.NoError(t, follows.AddEdge("bob", "alice"))

	assert.Equal(t, []string{"bob", "carol"}, follows.Following("alice"))
	assert.Equal(t, []string{"alice", "carol"}, follows.Followers("bob"))
	assertConsistent(t, follows)

	require.NoError(t, follows.RemoveEdge("alice", "bob"))
	assert.Equal(t, []string{"carol"}, follows.Following("alice"))
	assert.Equal(t, []string{"carol"}, follows.Followers("bob"))
	assert.Equal(t, []string{"bob"}, follows.Followers("alice"))
	assertConsistent(t, follows)
}

func TestFollowsReturnsCopies(t *testing.T) {
	follows := NewFollows(newFakeStore[model.Follow]())
	require.NoError(t, follows.AddEdge("alice", "bob"))

	got := follows.Following("alice")
	got[0] = "mallory"
	assert.Equal(t, []string{"bob"}, follows.Following("alice"))

	assert.NotNil(t, follows.Followers("nobody"))
}

func TestFollowsSurviveWriteFailure(t *testing.T) {
	fs := newFakeStore[model.Follow]()
	fs.err = errDiskFull
	follows := NewFollows(fs)

	err := follows.AddEdge("alice", "bob")
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, []string{"bob"}, follows.Following("alice"))
	assert.Equal(t, []string{"alice"}, follows.Followers("bob"))

	err = follows.RemoveEdge("alice", "bob")
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Empty(t, follows.Following("alice"))
	assertConsistent(t, follows)
}

func TestFollowsRemoveMissingEdgeReportsFailure(t *testing.T) {
	dir := tempStoreDir(t, "follows")
	follows := NewFollows(openStore[model.Follow](t, dir))

	err := follows.RemoveEdge("alice", "bob")
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assertConsistent(t, follows)
}

func TestFollowsLoad(t *testing.T) {
	fs := newFakeStore[model.Follow]()
	follows := NewFollows(fs)
	assert.False(t, follows.Load())

	fs.loaded = []model.Follow{
		{Follower: "alice", Followee: "bob"},
		{Follower: "carol", Followee: "bob"},
	}
	follows = NewFollows(fs)
	assert.True(t, follows.Load())
	assert.Equal(t, []string{"alice", "carol"}, follows.Followers("bob"))
	assert.Empty(t, fs.created)
	assertConsistent(t, follows)
}

func TestFollowsPersistAcrossReload(t *testing.T) {
	dir := tempStoreDir(t, "follows")

	first := NewFollows(openStore[model.Follow](t, dir))
	require.NoError(t, first.AddEdge("alice", "bob"))
	require.NoError(t, first.AddEdge("bob", "alice"))
	require.NoError(t, first.RemoveEdge("bob", "alice"))

	second := NewFollows(openStore[model.Follow](t, dir))
	assert.True(t, second.Load())
	assert.Equal(t, []string{"bob"}, second.Following("alice"))
	assert.Empty(t, second.Following("bob"))
	assertConsistent(t, second)
}
