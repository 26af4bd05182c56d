package index

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aweris/chirpy/internal/model"
)

// Posts groups posts by owner. Each owner's list is append-only and kept
// in insertion order.
type Posts struct {
	store Persister[model.Post]
	log   *zap.Logger
	now   func() time.Time

	byOwner map[string][]model.Post
	last    time.Time

	mu sync.RWMutex
}

func NewPosts(s Persister[model.Post], opts ...Option) *Posts {
	o := buildOptions("posts", opts)
	return &Posts{
		store:   s,
		log:     o.logger,
		now:     o.now,
		byOwner: make(map[string][]model.Post),
	}
}

// Load appends every stored post to its owner's list and returns the
// number loaded. It must be called exactly once, before the index serves
// requests: a second call appends the same posts again.
func (p *Posts) Load() int {
	posts, diags := p.store.LoadAll()

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, post := range posts {
		p.byOwner[post.Owner] = append(p.byOwner[post.Owner], post)
		if post.CreatedAt.After(p.last) {
			p.last = post.CreatedAt
		}
	}

	p.log.Info("posts loaded", zap.Int("count", len(posts)), zap.Int("skipped", len(diags)))
	return len(posts)
}

// Add records a new post by owner and writes it through to the store.
// The returned post is visible to readers even when the error is non-nil.
func (p *Posts) Add(owner, content string) (model.Post, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// keys embed the timestamp, so keep it strictly increasing
	created := p.now().UTC().Round(0)
	if !created.After(p.last) {
		created = p.last.Add(time.Nanosecond)
	}
	p.last = created

	post := model.Post{
		ID:        uuid.NewString(),
		Owner:     owner,
		Content:   content,
		CreatedAt: created,
	}
	p.byOwner[owner] = append(p.byOwner[owner], post)

	if err := p.store.Create(post.Key(), post); err != nil {
		p.log.Warn("post kept in memory only",
			zap.String("owner", owner),
			zap.String("id", post.ID),
			zap.Error(err),
		)
		return post, persistenceError("add post", err)
	}
	return post, nil
}

// ByOwner returns a copy of owner's posts in insertion order.
func (p *Posts) ByOwner(owner string) []model.Post {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return clone(p.byOwner[owner])
}

// All returns every post. Posts of one owner stay in insertion order; the
// order across owners is unspecified.
func (p *Posts) All() []model.Post {
	p.mu.RLock()
	defer p.mu.RUnlock()

	all := make([]model.Post, 0, p.lenLocked())
	for _, posts := range p.byOwner {
		all = append(all, posts...)
	}
	return all
}

// Len returns the number of indexed posts.
func (p *Posts) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lenLocked()
}

func (p *Posts) lenLocked() int {
	n := 0
	for _, posts := range p.byOwner {
		n += len(posts)
	}
	return n
}
