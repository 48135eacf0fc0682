package security

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	if hash == "hunter2hunter2" {
		t.Fatalf("hash must not equal the plaintext")
	}

	if err := CheckPassword(hash, "hunter2hunter2"); err != nil {
		t.Fatalf("CheckPassword with correct password: %v", err)
	}

	if err := CheckPassword(hash, "wrong-password"); err == nil {
		t.Fatalf("CheckPassword accepted a wrong password")
	}
}

func TestNewResetTokenIsRandomHex(t *testing.T) {
	a, err := NewResetToken()
	if err != nil {
		t.Fatalf("NewResetToken: %v", err)
	}

	b, err := NewResetToken()
	if err != nil {
		t.Fatalf("NewResetToken: %v", err)
	}

	if len(a) != 64 {
		t.Fatalf("token length = %d, want 64 hex chars", len(a))
	}

	if a == b {
		t.Fatalf("two tokens should not collide")
	}
}
