// Package service holds the business rules layered on top of the indexes:
// input validation, follow preconditions, timelines and search.
//
// Services pass write-through failures from the indexes back to the
// caller unchanged. Such errors match index.ErrPersistence and mean the
// change is visible but not durable.
package service

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/aweris/chirpy/internal/index"
	"github.com/aweris/chirpy/internal/model"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)

// ValidUsername reports whether name is acceptable for registration.
func ValidUsername(name string) bool {
	return usernamePattern.MatchString(name)
}

type Users struct {
	accounts *index.Accounts
	log      *zap.Logger
}

func NewUsers(accounts *index.Accounts, log *zap.Logger) *Users {
	if log == nil {
		log = zap.NewNop()
	}
	return &Users{accounts: accounts, log: log.With(zap.String("service", "users"))}
}

// Register creates a public account.
func (u *Users) Register(username, password string) error {
	if !ValidUsername(username) {
		return fmt.Errorf("register %q: %w", username, ErrInvalidUsername)
	}
	if password == "" {
		return fmt.Errorf("register %q: %w", username, ErrInvalidPassword)
	}

	ok, err := u.accounts.Insert(username, password, true)
	if !ok {
		return fmt.Errorf("register %q: %w", username, ErrUsernameTaken)
	}
	if err != nil {
		return err
	}

	u.log.Info("user registered", zap.String("username", username))
	return nil
}

// Authenticate checks a username/password pair.
func (u *Users) Authenticate(username, password string) error {
	if !u.accounts.PasswordMatches(username, password) {
		u.log.Debug("authentication failed", zap.String("username", username))
		return ErrInvalidCredentials
	}
	return nil
}

// ChangePassword replaces the password after checking the current one.
func (u *Users) ChangePassword(username, current, next string) error {
	if err := u.Authenticate(username, current); err != nil {
		return err
	}
	if next == "" {
		return fmt.Errorf("change password: %w", ErrInvalidPassword)
	}
	if _, err := u.accounts.UpdatePassword(username, next); err != nil {
		return err
	}
	return nil
}

// Exists reports whether username is registered.
func (u *Users) Exists(username string) bool {
	return u.accounts.Exists(username)
}

// Usernames returns all registered usernames, sorted.
func (u *Users) Usernames() []string {
	return u.accounts.Keys()
}

// List returns every account, sorted by username.
func (u *Users) List() []model.Account {
	names := u.accounts.Keys()
	out := make([]model.Account, 0, len(names))
	for _, name := range names {
		if acct, ok := u.accounts.Get(name); ok {
			out = append(out, acct)
		}
	}
	return out
}
