// Package sessions tracks revoked session tokens. Tokens are stateless
// JWTs, so logout and password changes cannot invalidate them on their
// own; the store keeps a denylist the auth middleware consults on every
// request.
package sessions

import (
	"context"
	"strconv"
	"time"

	"github.com/geocoder89/inkhub/internal/auth"
	"github.com/redis/go-redis/v9"
)

// Store decides whether a verified token is still usable.
type Store interface {
	// RevokeToken denies a single token by its jti until the token would
	// have expired anyway.
	RevokeToken(ctx context.Context, jti string, until time.Time) error

	// RevokeAllBefore denies every token of the user issued strictly
	// before the cutoff. A session minted at the cutoff instant survives,
	// which lets a password change hand its caller a fresh token in the
	// same second. Used when a password changes or an account is suspended.
	RevokeAllBefore(ctx context.Context, userID string, cutoff time.Time) error

	// IsRevoked reports whether the claims belong to a revoked session.
	IsRevoked(ctx context.Context, claims *auth.Claims) (bool, error)
}

const (
	tokenKeyPrefix  = "sessions:revoked:"
	cutoffKeyPrefix = "sessions:cutoff:"
)

// RedisStore is the production Store. Entries carry a TTL matched to the
// session lifetime, so the denylist cleans itself up.
type RedisStore struct {
	rdb        *redis.Client
	sessionTTL time.Duration
}

func NewRedisStore(rdb *redis.Client, sessionTTL time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, sessionTTL: sessionTTL}
}

func (s *RedisStore) RevokeToken(ctx context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		// token is already past its expiry; nothing to deny
		return nil
	}
	return s.rdb.Set(ctx, tokenKeyPrefix+jti, "1", ttl).Err()
}

func (s *RedisStore) RevokeAllBefore(ctx context.Context, userID string, cutoff time.Time) error {
	// keep the cutoff for a full session lifetime; older tokens all expire
	// within that window
	return s.rdb.Set(ctx, cutoffKeyPrefix+userID, strconv.FormatInt(cutoff.Unix(), 10), s.sessionTTL).Err()
}

func (s *RedisStore) IsRevoked(ctx context.Context, claims *auth.Claims) (bool, error) {
	if claims.JTI != "" {
		n, err := s.rdb.Exists(ctx, tokenKeyPrefix+claims.JTI).Result()
		if err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
	}

	val, err := s.rdb.Get(ctx, cutoffKeyPrefix+claims.UserID).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}

	cutoffUnix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// a garbled cutoff should fail closed
		return true, nil
	}

	issued := auth.IssuedAtOf(claims)
	return issued.Before(time.Unix(cutoffUnix, 0)), nil
}
