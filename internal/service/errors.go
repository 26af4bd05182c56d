package service

import "errors"

var (
	ErrInvalidUsername    = errors.New("username must be 3-32 letters, digits or underscores")
	ErrInvalidPassword    = errors.New("password must not be empty")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrUnknownUser        = errors.New("user does not exist")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrEmptyContent       = errors.New("post content must not be empty")
	ErrContentTooLong     = errors.New("post content is too long")
	ErrSelfFollow         = errors.New("users cannot follow themselves")
	ErrAlreadyFollowing   = errors.New("already following")
	ErrNotFollowing       = errors.New("not following")
	ErrInvalidQuery       = errors.New("query must start with '@' for a user or '#' for a tag")
)
