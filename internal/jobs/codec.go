package jobs

import (
	"encoding/json"
	"fmt"
)

// EncodePayload checks the payload struct matches the declared type before
// marshaling, so a wiring mistake fails at enqueue time and not in the
// worker.
func EncodePayload(t Type, payload any) ([]byte, error) {
	if !t.IsValid() {
		return nil, ErrInvalidType
	}

	switch t {
	case TypePasswordReset:
		switch payload.(type) {
		case PasswordResetPayload, *PasswordResetPayload:
		default:
			return nil, ErrPayloadTypeMismatch
		}

	case TypeWelcome:
		switch payload.(type) {
		case WelcomePayload, *WelcomePayload:
		default:
			return nil, ErrPayloadTypeMismatch
		}
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	return b, nil
}

// DecodePayload unmarshals raw payload bytes into the typed struct for the
// given job type.
func DecodePayload(t Type, raw []byte) (any, error) {
	if !t.IsValid() {
		return nil, ErrInvalidType
	}
	if len(raw) == 0 {
		return nil, ErrInvalidPayload
	}

	switch t {
	case TypePasswordReset:
		var p PasswordResetPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return p, nil

	case TypeWelcome:
		var p WelcomePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return p, nil

	default:
		return nil, ErrInvalidType
	}
}
