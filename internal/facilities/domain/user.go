package domain

import (
	"fmt"
	"strings"
)

// Role is a user's role as issued by the identity provider.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleLecturer Role = "LECTURER"
	RoleClassRep Role = "CLASS_REP"
	RoleStudent  Role = "STUDENT"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := roleCapabilities[role]; !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownRole, s)
	}
	return role, nil
}

// Capabilities are the booking-related permissions granted to a role.
type Capabilities struct {
	CanBook        bool
	AutoApprove    bool
	CanDecide      bool
	CanManageRooms bool
}

var roleCapabilities = map[Role]Capabilities{
	RoleAdmin:    {CanBook: true, AutoApprove: true, CanDecide: true, CanManageRooms: true},
	RoleLecturer: {CanBook: true},
	RoleClassRep: {CanBook: true},
	RoleStudent:  {},
}

// CapabilitiesFor returns the permissions of a role. Unknown roles get none.
func CapabilitiesFor(role Role) Capabilities {
	return roleCapabilities[role]
}

// User is the subset of an identity the booking engine needs.
type User struct {
	ID    int64
	Name  string
	Email string
	Role  Role
}

// Capabilities returns the user's permissions.
func (u User) Capabilities() Capabilities {
	return CapabilitiesFor(u.Role)
}
