package domain

import (
	"errors"
	"fmt"
)

// Role is the privilege level carried by a user and by the tokens issued to
// them. Comparisons go through this type rather than raw strings.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ErrUnknownRole is returned by ParseRole for anything outside the enum.
var ErrUnknownRole = errors.New("domain: unknown role")

// ParseRole maps a stored or claimed role string onto the enum. Matching is
// exact: "Admin" is not "admin".
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

func (r Role) String() string { return string(r) }
