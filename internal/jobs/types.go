// Package jobs defines the typed contracts carried in the payload column
// of the jobs table. The worker decodes by type; producers encode through
// the same codec so both sides agree on shape.
package jobs

type Type string

const (
	TypePasswordReset Type = "auth.password_reset"
	TypeWelcome       Type = "auth.welcome"
)

func (t Type) IsValid() bool {
	switch t {
	case TypePasswordReset, TypeWelcome:
		return true
	default:
		return false
	}
}
