package auth

import (
	"slices"

	"github.com/rosedal2/condoauth/internal/server/models"
)

// Principal is the authenticated caller of a protected operation.
type Principal struct {
	Account           models.PublicAccount
	TwoFactorVerified bool
}

// Requirement describes what an operation needs from its caller.
// An empty Roles list admits every role.
type Requirement struct {
	Public     bool
	Roles      []models.Role
	Require2FA bool
}

// CanAccess reports whether p satisfies req. A nil principal only passes
// public requirements. An account with 2FA enabled must have verified it in
// the presented token when req.Require2FA is set.
func CanAccess(p *Principal, req Requirement) bool {
	if req.Public {
		return true
	}
	if p == nil {
		return false
	}

	switch p.Account.Role {
	case models.RoleAdmin, models.RoleResident, models.RoleSecurityOfficer:
	default:
		return false
	}

	if len(req.Roles) > 0 && !slices.Contains(req.Roles, p.Account.Role) {
		return false
	}
	if req.Require2FA && p.Account.TwoFactorEnabled && !p.TwoFactorVerified {
		return false
	}
	return true
}
