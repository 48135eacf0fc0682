package jobs

import "strings"

// ValidatePayload rejects decoded payloads with missing required fields.
func ValidatePayload(t Type, payload any) error {
	if !t.IsValid() {
		return ErrInvalidType
	}

	trim := strings.TrimSpace

	switch t {
	case TypePasswordReset:
		var p PasswordResetPayload
		switch v := payload.(type) {
		case PasswordResetPayload:
			p = v
		case *PasswordResetPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if trim(p.UserID) == "" || trim(p.Email) == "" || trim(p.ResetURL) == "" || trim(p.TokenDigest) == "" {
			return ErrInvalidPayload
		}
		return nil

	case TypeWelcome:
		var p WelcomePayload
		switch v := payload.(type) {
		case WelcomePayload:
			p = v
		case *WelcomePayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if trim(p.UserID) == "" || trim(p.Email) == "" {
			return ErrInvalidPayload
		}
		return nil

	default:
		return ErrInvalidType
	}
}
