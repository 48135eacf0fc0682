package jobs

import "time"

// PasswordResetPayload carries everything the mailer needs; the worker does
// not load the user again, so a token rotated after enqueue simply produces
// a mail whose link no longer matches and fails safely at redemption.
type PasswordResetPayload struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	ResetURL    string    `json:"resetUrl"`
	TokenDigest string    `json:"tokenDigest"` // dedupe key, never the raw token
	ExpiresAt   time.Time `json:"expiresAt"`
	RequestedAt time.Time `json:"requestedAt"`
	RequestID   string    `json:"requestId,omitempty"`
}

// WelcomePayload greets a newly registered account.
type WelcomePayload struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	RequestedAt time.Time `json:"requestedAt"`
	RequestID   string    `json:"requestId,omitempty"`
}
