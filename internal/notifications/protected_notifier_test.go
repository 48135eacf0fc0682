package notifications

import (
	"context"
	"errors"
	"testing"
	"time"
)

type flakyNotifier struct {
	failures int // fail this many calls, then succeed
	calls    int
}

func (f *flakyNotifier) SendPasswordReset(_ context.Context, _ SendPasswordResetInput) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("provider down")
	}
	return nil
}

func (f *flakyNotifier) SendWelcome(_ context.Context, _ SendWelcomeInput) error {
	return f.SendPasswordReset(context.Background(), SendPasswordResetInput{})
}

func TestProtectedNotifier_OpensAfterThreshold(t *testing.T) {
	inner := &flakyNotifier{failures: 100}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{
		FailureThreshold: 2,
		Cooldown:         time.Minute,
	})

	in := SendPasswordResetInput{Email: "reader@example.com", ResetURL: "https://x/reset"}

	for i := 0; i < 2; i++ {
		if err := n.SendPasswordReset(context.Background(), in); err == nil {
			t.Fatalf("call %d: expected provider error", i)
		}
	}

	// circuit is open now; the inner notifier must not be called again
	before := inner.calls
	err := n.SendPasswordReset(context.Background(), in)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if inner.calls != before {
		t.Fatalf("inner notifier called while circuit open")
	}
}

func TestProtectedNotifier_HalfOpenRecovers(t *testing.T) {
	inner := &flakyNotifier{failures: 2}
	n := NewProtectedNotifier(inner, ProtectedNotifierConfig{
		FailureThreshold: 2,
		Cooldown:         10 * time.Millisecond,
	})

	in := SendPasswordResetInput{Email: "reader@example.com", ResetURL: "https://x/reset"}

	n.SendPasswordReset(context.Background(), in)
	n.SendPasswordReset(context.Background(), in)

	time.Sleep(20 * time.Millisecond)

	// trial call in half-open succeeds and closes the circuit
	if err := n.SendPasswordReset(context.Background(), in); err != nil {
		t.Fatalf("half-open trial: %v", err)
	}
	if err := n.SendPasswordReset(context.Background(), in); err != nil {
		t.Fatalf("closed circuit: %v", err)
	}
}
