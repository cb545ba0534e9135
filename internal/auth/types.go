package auth

import "errors"

// Role is the authorisation tier carried in a token.
type Role string

const (
	// RoleObserver may read status but change nothing.
	RoleObserver Role = "observer"

	// RoleOperator may change settings, select roofs and force the override.
	RoleOperator Role = "operator"
)

// ValidRoles lists every role a token may carry.
var ValidRoles = []Role{RoleObserver, RoleOperator}

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenMissing = errors.New("missing bearer token")
	ErrForbidden    = errors.New("insufficient permissions")
	ErrInvalidRole  = errors.New("invalid role")
	ErrNoSecret     = errors.New("no signing secret configured")
)
