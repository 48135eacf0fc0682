package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/geocoder89/inkhub/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
)

func testManager() *Manager {
	return NewManager("test-secret-key", 7*24*time.Hour, 2*time.Hour)
}

func activeUser() user.User {
	return user.User{
		ID:       "u1",
		Email:    "sam@example.com",
		Username: "sam",
		Role:     user.RoleAdmin,
		Status:   user.StatusActive,
	}
}

func TestIssueAndVerifySession(t *testing.T) {
	m := testManager()

	signed, issued, err := m.IssueSession(activeUser())
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	claims, err := m.VerifySession(signed)
	if err != nil {
		t.Fatalf("VerifySession: %v", err)
	}

	if claims.UserID != "u1" || claims.Role != string(user.RoleAdmin) {
		t.Fatalf("claims round trip broken: %+v", claims)
	}

	if claims.JTI != issued.JTI {
		t.Fatalf("jti mismatch: %s vs %s", claims.JTI, issued.JTI)
	}
}

func TestIssueSessionRefusesBlockedAccounts(t *testing.T) {
	m := testManager()

	for _, status := range []user.Status{user.StatusSuspended, user.StatusBanned} {
		u := activeUser()
		u.Status = status

		_, _, err := m.IssueSession(u)
		if !errors.Is(err, ErrAccountBlocked) {
			t.Fatalf("status %s: got %v, want ErrAccountBlocked", status, err)
		}
	}
}

func TestVerifySessionRejectsTampering(t *testing.T) {
	m := testManager()
	other := NewManager("another-secret", 7*24*time.Hour, 2*time.Hour)

	signed, _, err := other.IssueSession(activeUser())
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}

	if _, err := m.VerifySession(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign signature accepted: %v", err)
	}

	if _, err := m.VerifySession("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("garbage token accepted: %v", err)
	}
}

func TestVerifySessionRejectsUnknownRole(t *testing.T) {
	m := testManager()

	claims := &Claims{
		UserID: "u1",
		Email:  "sam@example.com",
		Role:   "SUPERADMIN",
		JTI:    "j1",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwt.NewNumericDate(time.Now().UTC().Add(time.Hour)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret-key"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := m.VerifySession(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("unknown role accepted: %v", err)
	}
}

func TestElevatedSessionCeiling(t *testing.T) {
	m := testManager()

	issuedAt := time.Now().UTC()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
	}

	// 1h59m after issuance: still inside the ceiling
	if m.ElevatedSessionExpired(claims, issuedAt.Add(1*time.Hour+59*time.Minute)) {
		t.Fatalf("session at T+1h59m should still be valid")
	}

	// 2h01m after issuance: expired, no grace period
	if !m.ElevatedSessionExpired(claims, issuedAt.Add(2*time.Hour+1*time.Minute)) {
		t.Fatalf("session at T+2h01m should be expired")
	}
}

func TestReissuePreservesRoleAndIssuance(t *testing.T) {
	m := testManager()

	signed, issued, err := m.IssueSession(activeUser())
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	_ = signed

	reSigned, err := m.ReissueSession(issued, "sam-renamed", "https://cdn.example.com/a.png")
	if err != nil {
		t.Fatalf("ReissueSession: %v", err)
	}

	re, err := m.VerifySession(reSigned)
	if err != nil {
		t.Fatalf("VerifySession: %v", err)
	}

	if re.Username != "sam-renamed" || re.AvatarURL != "https://cdn.example.com/a.png" {
		t.Fatalf("display fields not carried forward: %+v", re)
	}

	if re.Role != issued.Role || !re.IssuedAt.Time.Equal(issued.IssuedAt.Time) || re.JTI != issued.JTI {
		t.Fatalf("role/issuance must not change on reissue")
	}
}
