package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/inkhub/internal/auth"
)

// MemoryStore is a process-local Store for tests and single-node dev runs
// without redis.
type MemoryStore struct {
	mu      sync.RWMutex
	tokens  map[string]time.Time // jti -> deny until
	cutoffs map[string]time.Time // userID -> issued-before cutoff
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens:  make(map[string]time.Time),
		cutoffs: make(map[string]time.Time),
	}
}

func (s *MemoryStore) RevokeToken(_ context.Context, jti string, until time.Time) error {
	s.mu.Lock()
	s.tokens[jti] = until
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) RevokeAllBefore(_ context.Context, userID string, cutoff time.Time) error {
	s.mu.Lock()
	// second granularity, same as the redis store and JWT issued-at
	s.cutoffs[userID] = cutoff.Truncate(time.Second)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) IsRevoked(_ context.Context, claims *auth.Claims) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if until, ok := s.tokens[claims.JTI]; ok && time.Now().Before(until) {
		return true, nil
	}

	if cutoff, ok := s.cutoffs[claims.UserID]; ok {
		if auth.IssuedAtOf(claims).Before(cutoff) {
			return true, nil
		}
	}

	return false, nil
}
