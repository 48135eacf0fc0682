// Package notifications is the outbound mail boundary. The worker talks to
// the Notifier interface only; swapping the log notifier for a real
// provider is a wiring change in cmd/worker.
package notifications

import (
	"context"
	"time"
)

type SendPasswordResetInput struct {
	Email     string
	Username  string
	ResetURL  string
	ExpiresAt time.Time
}

type SendWelcomeInput struct {
	Email    string
	Username string
}

type Notifier interface {
	SendPasswordReset(ctx context.Context, input SendPasswordResetInput) error
	SendWelcome(ctx context.Context, input SendWelcomeInput) error
}
