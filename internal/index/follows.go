package index

import (
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/aweris/chirpy/internal/model"
)

// Follows holds the follow graph as two adjacency lists over the same
// edge set: forward (follower -> followees) and reverse (followee ->
// followers). Every edge (a, b) in forward[a] has a matching a in
// reverse[b], and the other way round.
//
// Follows does not reject self edges or duplicates; callers check
// Contains before AddEdge and before RemoveEdge.
type Follows struct {
	store Persister[model.Follow]
	log   *zap.Logger

	forward map[string][]string
	reverse map[string][]string

	mu sync.RWMutex
}

func NewFollows(s Persister[model.Follow], opts ...Option) *Follows {
	o := buildOptions("follows", opts)
	return &Follows{
		store:   s,
		log:     o.logger,
		forward: make(map[string][]string),
		reverse: make(map[string][]string),
	}
}

// Load replays every stored edge into both adjacency lists. It reports
// whether at least one edge was loaded; callers only log that.
func (f *Follows) Load() bool {
	edges, diags := f.store.LoadAll()

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, edge := range edges {
		f.link(edge.Follower, edge.Followee)
	}

	f.log.Info("follows loaded", zap.Int("count", len(edges)), zap.Int("skipped", len(diags)))
	return len(edges) > 0
}

// AddEdge records that source follows target and persists the edge. The
// edge is visible through both adjacency lists even when the returned
// error is non-nil.
func (f *Follows) AddEdge(source, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.link(source, target)

	edge := model.Follow{Follower: source, Followee: target}
	if err := f.store.Create(edge.Key(), edge); err != nil {
		f.log.Warn("follow kept in memory only",
			zap.String("follower", source),
			zap.String("followee", target),
			zap.Error(err),
		)
		return persistenceError("add edge", err)
	}
	return nil
}

// RemoveEdge drops the first occurrence of the edge from both adjacency
// lists and deletes the stored record.
func (f *Follows) RemoveEdge(source, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.forward[source] = removeFirst(f.forward[source], target)
	if len(f.forward[source]) == 0 {
		delete(f.forward, source)
	}
	f.reverse[target] = removeFirst(f.reverse[target], source)
	if len(f.reverse[target]) == 0 {
		delete(f.reverse, target)
	}

	if err := f.store.Delete(model.FollowKey(source, target)); err != nil {
		f.log.Warn("follow removed from memory only",
			zap.String("follower", source),
			zap.String("followee", target),
			zap.Error(err),
		)
		return persistenceError("remove edge", err)
	}
	return nil
}

// Following returns a copy of the users source follows.
func (f *Follows) Following(source string) []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return clone(f.forward[source])
}

// Followers returns a copy of the users following target.
func (f *Follows) Followers(target string) []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return clone(f.reverse[target])
}

// Contains reports whether source follows target.
func (f *Follows) Contains(source, target string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Contains(f.forward[source], target)
}

func (f *Follows) link(source, target string) {
	f.forward[source] = append(f.forward[source], target)
	f.reverse[target] = append(f.reverse[target], source)
}

func removeFirst(list []string, v string) []string {
	i := slices.Index(list, v)
	if i < 0 {
		return list
	}
	return slices.Delete(list, i, i+1)
}
