package auth

import (
	"errors"
	"time"

	"github.com/geocoder89/inkhub/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken   = errors.New("invalid session token")
	ErrAccountBlocked = errors.New("account is suspended or banned")
)

// Claims is the decoded session token. Role and issuance time are frozen
// at login; profile edits may carry forward the display fields only.
//
// UserID carries the sub claim. It shadows the embedded
// RegisteredClaims.Subject on both encode and decode, so Subject is
// always empty on a parsed token; UserID is the identity field.
type Claims struct {
	UserID    string `json:"sub"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar,omitempty"`
	Role      string `json:"role"`
	JTI       string `json:"jti"`
	jwt.RegisteredClaims
}

// RoleTyped validates the role claim once, at the trust boundary.
func (c *Claims) RoleTyped() (user.Role, bool) {
	r := user.Role(c.Role)
	return r, r.IsValid()
}

type Manager struct {
	secret     []byte
	sessionTTL time.Duration
	adminMax   time.Duration
}

func NewManager(secret string, sessionTTL, adminMax time.Duration) *Manager {
	return &Manager{
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		adminMax:   adminMax,
	}
}

// IssueSession mints a session token for a verified identity. Issuance is
// refused outright for suspended/banned accounts.
func (m *Manager) IssueSession(u user.User) (string, *Claims, error) {
	if !u.Status.CanSignIn() {
		return "", nil, ErrAccountBlocked
	}

	now := time.Now().UTC()

	avatar := ""
	if u.AvatarURL != nil {
		avatar = *u.AvatarURL
	}

	claims := &Claims{
		UserID:    u.ID,
		Email:     u.Email,
		Username:  u.Username,
		AvatarURL: avatar,
		Role:      string(u.Role),
		JTI:       uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.sessionTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", nil, err
	}

	return signed, claims, nil
}

// ReissueSession rebuilds a token after a profile edit: username/avatar are
// refreshed, role, identity, jti and issuance time stay exactly as issued.
func (m *Manager) ReissueSession(prev *Claims, username, avatarURL string) (string, error) {
	claims := &Claims{
		UserID:    prev.UserID,
		Email:     prev.Email,
		Username:  username,
		AvatarURL: avatarURL,
		Role:      prev.Role,
		JTI:       prev.JTI,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  prev.IssuedAt,
			ExpiresAt: prev.ExpiresAt,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(m.secret)
}

// VerifySession checks the signature and shape of a presented token.
// Business rules on top of the decoded claims (admin ceiling, revocation)
// belong to the guard, not here.
func (m *Manager) VerifySession(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256
		_, ok := t.Method.(*jwt.SigningMethodHMAC)

		if !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})

	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)

	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if _, ok := claims.RoleTyped(); !ok {
		return nil, ErrInvalidToken
	}

	if claims.UserID == "" || claims.JTI == "" || claims.IssuedAt == nil {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// ElevatedSessionExpired applies the fixed ceiling for elevated-privilege
// sessions: once elapsed time since issuance exceeds it the session is
// invalid on every subsequent guarded request, no grace period.
func (m *Manager) ElevatedSessionExpired(claims *Claims, now time.Time) bool {
	if claims.IssuedAt == nil {
		return true
	}
	return now.Sub(claims.IssuedAt.Time) > m.adminMax
}

// IssuedAtOf is a small helper for revocation cutoff comparisons.
func IssuedAtOf(claims *Claims) time.Time {
	if claims.IssuedAt == nil {
		return time.Time{}
	}
	return claims.IssuedAt.Time
}
