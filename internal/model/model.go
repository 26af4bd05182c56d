// Package model defines the records persisted by chirpy.
package model

import (
	"net/url"
	"strconv"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Type tags written into every stored record envelope.
const (
	AccountType = "chirpy.account"
	PostType    = "chirpy.post"
	FollowType  = "chirpy.follow"
)

// Account is a registered user. Password is compared as an opaque string.
type Account struct {
	Username string `msgpack:"username" json:"username"`
	Password string `msgpack:"password" json:"-"`
	Public   bool   `msgpack:"public" json:"public"`
}

func (Account) RecordType() string { return AccountType }

// Key returns the record key an account is stored under.
func (a Account) Key() string { return EscapeUsername(a.Username) }

// Post is a single chirp. CreatedAt is always UTC.
type Post struct {
	ID        string    `msgpack:"id" json:"id"`
	Owner     string    `msgpack:"owner" json:"owner"`
	Content   string    `msgpack:"content" json:"content"`
	CreatedAt time.Time `msgpack:"created_at" json:"created_at"`
}

func (Post) RecordType() string { return PostType }

// DecodeMsgpack restores CreatedAt in UTC; msgpack decodes times in the
// local zone.
func (p *Post) DecodeMsgpack(dec *msgpack.Decoder) error {
	type plain Post
	if err := dec.Decode((*plain)(p)); err != nil {
		return err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return nil
}

// Key derives the record key from the owner and creation time.
func (p Post) Key() string {
	return EscapeUsername(p.Owner) + "_" + strconv.FormatInt(p.CreatedAt.UnixNano(), 10)
}

// Follow is a directed edge: Follower follows Followee.
type Follow struct {
	Follower string `msgpack:"follower" json:"follower"`
	Followee string `msgpack:"followee" json:"followee"`
}

func (Follow) RecordType() string { return FollowType }

// Key is order-sensitive: Follow{a, b} and Follow{b, a} never share a key.
func (f Follow) Key() string { return FollowKey(f.Follower, f.Followee) }

// FollowKey returns the record key for the edge follower -> followee.
func FollowKey(follower, followee string) string {
	return EscapeUsername(follower) + "," + EscapeUsername(followee)
}

// EscapeUsername makes a username safe to embed in a record key. The
// result never contains '/', '\' or ','.
func EscapeUsername(username string) string {
	return url.QueryEscape(username)
}
