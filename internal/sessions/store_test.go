package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/geocoder89/inkhub/internal/auth"
	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "sessions-test-secret"

// claimsFor round-trips hand-built claims through signing and
// VerifySession, so the store sees exactly what the middleware would
// hand it after decoding a presented token.
func claimsFor(t *testing.T, userID, jti string, issuedAt time.Time) *auth.Claims {
	t.Helper()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		UserID:   userID,
		Email:    userID + "@example.com",
		Username: userID,
		Role:     "USER",
		JTI:      jti,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	mgr := auth.NewManager(testSecret, time.Hour, 2*time.Hour)

	claims, err := mgr.VerifySession(signed)
	if err != nil {
		t.Fatalf("VerifySession: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("decoded UserID = %q, want %q", claims.UserID, userID)
	}
	return claims
}

func TestMemoryStoreRevokeToken(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	c := claimsFor(t, "u1", "jti-1", time.Now())

	revoked, err := store.IsRevoked(ctx, c)
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if revoked {
		t.Fatal("fresh token reported revoked")
	}

	if err := store.RevokeToken(ctx, "jti-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}

	revoked, err = store.IsRevoked(ctx, c)
	if err != nil {
		t.Fatalf("IsRevoked: %v", err)
	}
	if !revoked {
		t.Fatal("revoked token reported valid")
	}

	// a different token of the same user stays valid
	other := claimsFor(t, "u1", "jti-2", time.Now())
	revoked, _ = store.IsRevoked(ctx, other)
	if revoked {
		t.Fatal("unrelated token reported revoked")
	}
}

func TestMemoryStoreRevokeAllBefore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	cutoff := time.Now()

	old := claimsFor(t, "u1", "jti-old", cutoff.Add(-time.Minute))
	fresh := claimsFor(t, "u1", "jti-new", cutoff.Add(time.Minute))
	otherUser := claimsFor(t, "u2", "jti-other", cutoff.Add(-time.Minute))

	if err := store.RevokeAllBefore(ctx, "u1", cutoff); err != nil {
		t.Fatalf("RevokeAllBefore: %v", err)
	}

	if revoked, _ := store.IsRevoked(ctx, old); !revoked {
		t.Error("token issued before cutoff should be revoked")
	}
	if revoked, _ := store.IsRevoked(ctx, fresh); revoked {
		t.Error("token issued after cutoff should stay valid")
	}
	if revoked, _ := store.IsRevoked(ctx, otherUser); revoked {
		t.Error("other user's token should stay valid")
	}
}
