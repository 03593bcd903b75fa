package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role is the closed set of congregation roles the attendance engine knows about.
type Role string

const (
	RoleAdmin    Role = "admin"
	RolePastor   Role = "pastor"
	RoleShepherd Role = "shepherd"
)

func ParseRole(v string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(v))); r {
	case RoleAdmin, RolePastor, RoleShepherd:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", v)
	}
}

func (r Role) String() string {
	return string(r)
}

// Actor is the authenticated caller. It is passed explicitly into every
// engine operation; nothing reads a "current user" from ambient state.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
