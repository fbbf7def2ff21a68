package models

import "fmt"

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin           Role = "admin"
	RoleResident        Role = "resident"
	RoleSecurityOfficer Role = "securityOfficer"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleResident, RoleSecurityOfficer}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleResident, RoleSecurityOfficer:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}
