// Package policy holds pure authorization decision rules that sit on top
// of the role hierarchy. Nothing here touches the store or the request.
package policy

import "errors"

// Action is the small set of privileged operations on another account.
type Action string

const (
	ActionDemote  Action = "demote"
	ActionSuspend Action = "suspend"
	ActionDelete  Action = "delete"
)

// Typed rejection reasons so the UI can render an actionable message
// instead of a generic denial.
var (
	ErrSelfDemotion   = errors.New("you cannot remove your own admin privileges")
	ErrSelfSuspension = errors.New("you cannot suspend your own account")
	ErrSelfDeletion   = errors.New("you cannot delete your own account")
)

// CheckSelfAction vetoes a restricted action when actor and target are the
// same identity, regardless of the actor's role. Any other actor/target
// pair passes; role checks are a separate layer.
func CheckSelfAction(actorID, targetID string, action Action) error {
	if actorID == "" || actorID != targetID {
		return nil
	}

	switch action {
	case ActionDemote:
		return ErrSelfDemotion
	case ActionSuspend:
		return ErrSelfSuspension
	case ActionDelete:
		return ErrSelfDeletion
	default:
		return nil
	}
}

// Code maps a rejection to its machine-checkable kind for API responses.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrSelfDemotion):
		return "self_demotion"
	case errors.Is(err, ErrSelfSuspension):
		return "self_suspension"
	case errors.Is(err, ErrSelfDeletion):
		return "self_deletion"
	default:
		return "forbidden"
	}
}
