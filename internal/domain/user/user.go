package user

import (
	"errors"
	"time"
)

// Role is a closed enumeration. It is validated once at the trust
// boundary (token decode / row scan) and never re-cast ad hoc.
type Role string

const (
	RoleUser   Role = "USER"
	RoleEditor Role = "EDITOR"
	RoleAdmin  Role = "ADMIN"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleEditor, RoleAdmin:
		return true
	default:
		return false
	}
}

// Rank maps a role onto the total order USER < EDITOR < ADMIN.
// Unknown roles rank below everything.
func (r Role) Rank() int {
	switch r {
	case RoleUser:
		return 0
	case RoleEditor:
		return 1
	case RoleAdmin:
		return 2
	default:
		return -1
	}
}

// Satisfies reports whether r carries at least the privilege of required.
func (r Role) Satisfies(required Role) bool {
	if !r.IsValid() || !required.IsValid() {
		return false
	}
	return r.Rank() >= required.Rank()
}

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusSuspended Status = "SUSPENDED"
	StatusBanned    Status = "BANNED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusSuspended, StatusBanned:
		return true
	default:
		return false
	}
}

// CanSignIn is the single gate shared by the credential, federated and
// reset-token paths.
func (s Status) CanSignIn() bool {
	return s == StatusActive
}

var (
	ErrNotFound      = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already in use")
	ErrUsernameTaken = errors.New("username already in use")
)

type User struct {
	ID           string  `json:"id"`
	Email        string  `json:"email"`
	Username     string  `json:"username"`
	PasswordHash string  `json:"-"` // never expose hash in JSON
	AvatarURL    *string `json:"avatarUrl,omitempty"`
	Role         Role    `json:"role"`
	Status       Status  `json:"status"`

	// Reset token state; single live token per user, last writer wins.
	ResetToken       *string    `json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// with pointers if optional, it will be nil
type ListFilter struct {
	Role   *Role
	Status *Status
	Query  *string // matches email or username
	Limit  int
	Offset int
}

type UpdateRequest struct {
	Email     string  `json:"email" binding:"required,email"`
	Username  string  `json:"username" binding:"required,min=3,max=50"`
	AvatarURL *string `json:"avatarUrl" binding:"omitempty,url"`
	Role      *Role   `json:"role" binding:"omitempty,oneof=USER EDITOR ADMIN"`
	Status    *Status `json:"status" binding:"omitempty,oneof=ACTIVE SUSPENDED"`
}
