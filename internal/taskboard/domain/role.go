package domain

import "strings"

// Role is the single canonical role value held on a user row.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// KnownRoles are seeded into the role catalogue at startup.
var KnownRoles = []Role{RoleAdmin, RoleUser}

// ParseRole accepts a known role name in any case.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleUser:
		return RoleUser, true
	}
	return "", false
}
