// Package memory holds in-process repositories used by tests and local
// experiments; the postgres package is the real store.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/geocoder89/inkhub/internal/domain/user"
)

type UsersRepo struct {
	mu    sync.RWMutex
	users map[string]user.User // by id
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{users: make(map[string]user.User)}
}

func (r *UsersRepo) Create(_ context.Context, u user.User) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return user.User{}, user.ErrEmailTaken
		}
		if existing.Username == u.Username {
			return user.User{}, user.ErrUsernameTaken
		}
	}

	r.users[u.ID] = u
	return u, nil
}

// Put replaces a stored user wholesale. Tests use it to force states
// the handlers cannot reach directly.
func (r *UsersRepo) Put(u user.User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users[u.ID] = u
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) GetByID(_ context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) GetByUsername(_ context.Context, username string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) GetByResetToken(_ context.Context, token string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now().UTC()

	for _, u := range r.users {
		if u.ResetToken != nil && *u.ResetToken == token &&
			u.ResetTokenExpiry != nil && u.ResetTokenExpiry.After(now) {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) SetResetToken(_ context.Context, id, token string, expiry time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return user.ErrNotFound
	}

	u.ResetToken = &token
	u.ResetTokenExpiry = &expiry
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}

func (r *UsersRepo) UpdatePassword(_ context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return user.ErrNotFound
	}

	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}

func (r *UsersRepo) ConsumePasswordReset(_ context.Context, id, token, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok || u.ResetToken == nil || *u.ResetToken != token ||
		u.ResetTokenExpiry == nil || !u.ResetTokenExpiry.After(time.Now().UTC()) {
		return user.ErrNotFound
	}

	u.PasswordHash = passwordHash
	u.ResetToken = nil
	u.ResetTokenExpiry = nil
	u.UpdatedAt = time.Now().UTC()
	r.users[id] = u
	return nil
}

func (r *UsersRepo) EmailExists(_ context.Context, email string) (bool, error) {
	_, err := r.GetByEmail(context.Background(), email)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (r *UsersRepo) UsernameExists(_ context.Context, username string) (bool, error) {
	_, err := r.GetByUsername(context.Background(), username)
	if err != nil {
		return false, nil
	}
	return true, nil
}
