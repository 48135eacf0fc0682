package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// LogNotifier writes mail to the log instead of a provider. In dev the
// reset link is read straight from the worker output.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) simulate(ctx context.Context) error {
	// Optional: simulate slow provider
	if msStr := os.Getenv("NOTIFIER_SLEEP_MS"); msStr != "" {
		ms, _ := strconv.Atoi(msStr)
		if ms > 0 {
			select {
			case <-time.After(time.Duration(ms) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	// Optional: simulate provider outage
	if os.Getenv("NOTIFIER_FAIL") == "1" {
		return fmt.Errorf("provider down (simulated)")
	}

	return nil
}

func (n *LogNotifier) SendPasswordReset(ctx context.Context, in SendPasswordResetInput) error {
	if err := n.simulate(ctx); err != nil {
		return err
	}

	n.logger.Info("mail.password_reset",
		"email", in.Email,
		"username", in.Username,
		"reset_url", in.ResetURL,
		"expires_at", in.ExpiresAt,
	)
	return nil
}

func (n *LogNotifier) SendWelcome(ctx context.Context, in SendWelcomeInput) error {
	if err := n.simulate(ctx); err != nil {
		return err
	}

	n.logger.Info("mail.welcome",
		"email", in.Email,
		"username", in.Username,
	)
	return nil
}
