package policy

import (
	"errors"
	"testing"
)

func TestCheckSelfAction(t *testing.T) {
	tests := []struct {
		name    string
		actor   string
		target  string
		action  Action
		wantErr error
	}{
		{"self_demote", "u1", "u1", ActionDemote, ErrSelfDemotion},
		{"self_suspend", "u1", "u1", ActionSuspend, ErrSelfSuspension},
		{"self_delete", "u1", "u1", ActionDelete, ErrSelfDeletion},
		{"other_demote", "u1", "u2", ActionDemote, nil},
		{"other_suspend", "u1", "u2", ActionSuspend, nil},
		{"other_delete", "u1", "u2", ActionDelete, nil},
		{"empty_actor", "", "", ActionDelete, nil},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := CheckSelfAction(tt.actor, tt.target, tt.action)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("CheckSelfAction(%q,%q,%s) = %v, want %v",
					tt.actor, tt.target, tt.action, err, tt.wantErr)
			}
		})
	}
}

func TestCodeDistinguishesReasons(t *testing.T) {
	codes := map[error]string{
		ErrSelfDemotion:   "self_demotion",
		ErrSelfSuspension: "self_suspension",
		ErrSelfDeletion:   "self_deletion",
	}

	seen := map[string]bool{}

	for err, want := range codes {
		got := Code(err)
		if got != want {
			t.Fatalf("Code(%v) = %q, want %q", err, got, want)
		}
		if seen[got] {
			t.Fatalf("code %q reused for more than one reason", got)
		}
		seen[got] = true
	}

	if Code(errors.New("other")) != "forbidden" {
		t.Fatalf("unknown errors should map to the generic forbidden code")
	}
}
