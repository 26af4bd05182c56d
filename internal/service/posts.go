package service

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/aweris/chirpy/internal/index"
	"github.com/aweris/chirpy/internal/model"
)

// MaxContentLength is the longest post accepted, in runes.
const MaxContentLength = 280

type Posts struct {
	posts    *index.Posts
	follows  *index.Follows
	accounts *index.Accounts
	log      *zap.Logger
}

func NewPosts(posts *index.Posts, follows *index.Follows, accounts *index.Accounts, log *zap.Logger) *Posts {
	if log == nil {
		log = zap.NewNop()
	}
	return &Posts{
		posts:    posts,
		follows:  follows,
		accounts: accounts,
		log:      log.With(zap.String("service", "posts")),
	}
}

// Post publishes content for username.
func (p *Posts) Post(username, content string) (model.Post, error) {
	content = strings.TrimSpace(content)
	switch {
	case !p.accounts.Exists(username):
		return model.Post{}, fmt.Errorf("post as %q: %w", username, ErrUnknownUser)
	case content == "":
		return model.Post{}, ErrEmptyContent
	case utf8.RuneCountInString(content) > MaxContentLength:
		return model.Post{}, fmt.Errorf("%w: %d runes, limit %d", ErrContentTooLong, utf8.RuneCountInString(content), MaxContentLength)
	}

	post, err := p.posts.Add(username, content)
	if err != nil {
		return post, err
	}
	p.log.Debug("post published", zap.String("owner", username), zap.String("id", post.ID))
	return post, nil
}

// ByUser returns username's posts, oldest first.
func (p *Posts) ByUser(username string) []model.Post {
	return p.posts.ByOwner(username)
}

// All returns every post, newest first.
func (p *Posts) All() []model.Post {
	return newestFirst(p.posts.All())
}

// Timeline returns the posts of everyone username follows, newest first.
func (p *Posts) Timeline(username string) []model.Post {
	var out []model.Post
	for _, followee := range p.follows.Following(username) {
		out = append(out, p.posts.ByOwner(followee)...)
	}
	return newestFirst(out)
}

func newestFirst(posts []model.Post) []model.Post {
	if posts == nil {
		posts = []model.Post{}
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
	return posts
}
