package service

import (
	"strings"

	"github.com/aweris/chirpy/internal/index"
	"github.com/aweris/chirpy/internal/model"
)

type Search struct {
	posts *index.Posts
}

func NewSearch(posts *index.Posts) *Search {
	return &Search{posts: posts}
}

// Query runs "@name" as an author search and "#tag" as a tag search.
func (s *Search) Query(q string) ([]model.Post, error) {
	q = strings.TrimSpace(q)
	if len(q) < 2 {
		return nil, ErrInvalidQuery
	}

	switch q[0] {
	case '@':
		return s.ByUser(q[1:]), nil
	case '#':
		return s.ByTag(q), nil
	default:
		return nil, ErrInvalidQuery
	}
}

// ByTag returns posts whose content contains tag, newest first. A missing
// leading '#' is added.
func (s *Search) ByTag(tag string) []model.Post {
	if !strings.HasPrefix(tag, "#") {
		tag = "#" + tag
	}
	var out []model.Post
	for _, post := range s.posts.All() {
		if strings.Contains(post.Content, tag) {
			out = append(out, post)
		}
	}
	return newestFirst(out)
}

// ByUser returns posts by username, newest first.
func (s *Search) ByUser(username string) []model.Post {
	return newestFirst(s.posts.ByOwner(username))
}
