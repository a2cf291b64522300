package domain

import "time"

// Scheme names the credential type that authenticated a request.
type Scheme string

const (
	SchemeBasic  Scheme = "basic"
	SchemeBearer Scheme = "bearer"
)

// Claims is the normalized view of who is calling, built from either a
// verified Basic credential or a verified bearer token. It lives for one
// request and is never persisted.
type Claims struct {
	Identity string
	Role     Role
	Scheme   Scheme

	// Bearer only.
	TokenID   string
	ExpiresAt time.Time
}

// HasRole reports whether the caller holds exactly role.
func (c Claims) HasRole(role Role) bool { return c.Role == role }
