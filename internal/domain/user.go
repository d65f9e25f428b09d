package domain

import (
	"github.com/google/uuid"
)

// Role is the capability level of an authenticated user.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// User is the request identity supplied by the session layer.
// This is a minimal struct for context storage; the full account record
// lives outside this core.
type User struct {
	ID    uuid.UUID
	Email string
	Role  Role
}

// Can reports whether the user holds the given role. Admins hold every role.
func (u *User) Can(role Role) bool {
	if u == nil {
		return false
	}
	return u.Role == role || u.Role == RoleAdmin
}
