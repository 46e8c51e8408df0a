package domain

import (
	"fmt"
	"strings"
)

// Role is the coarse permission level carried in access tokens.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// DefaultRole is assigned when registration does not name one.
const DefaultRole = RoleCustomer

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

func (r Role) String() string { return string(r) }

// ParseRole accepts a known role name, case insensitive. The empty string
// yields DefaultRole.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultRole, nil
	}
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}
