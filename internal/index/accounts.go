package index

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/aweris/chirpy/internal/model"
)

// Accounts maps each username to exactly one account. Entries are never
// removed.
type Accounts struct {
	store Persister[model.Account]
	log   *zap.Logger

	byName map[string]model.Account

	mu sync.RWMutex
}

func NewAccounts(s Persister[model.Account], opts ...Option) *Accounts {
	o := buildOptions("accounts", opts)
	return &Accounts{
		store:  s,
		log:    o.logger,
		byName: make(map[string]model.Account),
	}
}

// Load fills the index from the store without writing anything back and
// returns the number of accounts loaded.
func (a *Accounts) Load() int {
	accounts, diags := a.store.LoadAll()

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, acct := range accounts {
		a.byName[acct.Username] = acct
	}

	a.log.Info("accounts loaded", zap.Int("count", len(accounts)), zap.Int("skipped", len(diags)))
	return len(accounts)
}

// Exists reports whether username is indexed.
func (a *Accounts) Exists(username string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.byName[username]
	return ok
}

// Insert adds a new account. It returns false, with no error, when the
// username is taken. A true result with a non-nil error means the account
// is indexed but was not persisted.
func (a *Accounts) Insert(username, password string, public bool) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.byName[username]; ok {
		a.log.Debug("account already exists", zap.String("username", username))
		return false, nil
	}

	acct := model.Account{Username: username, Password: password, Public: public}
	a.byName[username] = acct

	if err := a.store.Create(acct.Key(), acct); err != nil {
		a.log.Warn("account kept in memory only", zap.String("username", username), zap.Error(err))
		return true, persistenceError("insert account", err)
	}
	return true, nil
}

// UpdatePassword replaces the password of an existing account. It returns
// false when the account does not exist.
func (a *Accounts) UpdatePassword(username, password string) (bool, error) {
	return a.update(username, "update password", func(acct *model.Account) {
		acct.Password = password
	})
}

// SetPublic changes the visibility flag of an existing account.
func (a *Accounts) SetPublic(username string, public bool) (bool, error) {
	return a.update(username, "set public", func(acct *model.Account) {
		acct.Public = public
	})
}

func (a *Accounts) update(username, op string, mutate func(*model.Account)) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	acct, ok := a.byName[username]
	if !ok {
		return false, nil
	}
	mutate(&acct)
	a.byName[username] = acct

	if err := a.store.Update(acct.Key(), acct); err != nil {
		a.log.Warn("account change kept in memory only",
			zap.String("username", username),
			zap.String("op", op),
			zap.Error(err),
		)
		return true, persistenceError(op, err)
	}
	return true, nil
}

// Get returns a copy of the account for username.
func (a *Accounts) Get(username string) (model.Account, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	acct, ok := a.byName[username]
	return acct, ok
}

// PasswordMatches compares password with the stored one as opaque strings.
func (a *Accounts) PasswordMatches(username, password string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	acct, ok := a.byName[username]
	return ok && acct.Password == password
}

// Remove is not supported: accounts are never deleted. It always fails
// and leaves the index untouched.
func (a *Accounts) Remove(username string) error {
	return fmt.Errorf("remove account %q: %w", username, errors.ErrUnsupported)
}

// Keys returns all indexed usernames in sorted order.
func (a *Accounts) Keys() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	keys := make([]string, 0, len(a.byName))
	for name := range a.byName {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of indexed accounts.
func (a *Accounts) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.byName)
}
