// Package models defines server-side data models persisted in the database.
package models

import "time"

// Account is a user of the condominium system. Accounts are never
// hard-deleted; IsActive=false is a soft deactivation.
type Account struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Phone        *string
	Role         Role
	HouseID      *int64
	IsActive     bool

	FailedAttempts int
	IsLocked       bool
	LockedUntil    *time.Time

	TwoFactorEnabled bool
	TwoFactorSecret  *string

	LastLogin *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LockedAt reports whether the account is locked at now. A lock whose
// LockedUntil has passed (or is unset) no longer applies.
func (a *Account) LockedAt(now time.Time) bool {
	return a.IsLocked && a.LockedUntil != nil && a.LockedUntil.After(now)
}

// Public returns the projection that is safe to hand to callers.
func (a *Account) Public() PublicAccount {
	return PublicAccount{
		ID:               a.ID,
		Email:            a.Email,
		FirstName:        a.FirstName,
		LastName:         a.LastName,
		Role:             a.Role,
		HouseID:          a.HouseID,
		TwoFactorEnabled: a.TwoFactorEnabled,
	}
}

// PublicAccount never carries the password hash or the TOTP secret.
type PublicAccount struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	FirstName        string `json:"firstName"`
	LastName         string `json:"lastName"`
	Role             Role   `json:"role"`
	HouseID          *int64 `json:"houseId,omitempty"`
	TwoFactorEnabled bool   `json:"twoFactorEnabled"`
}

// AccountUpdate lists the columns an Update call may change. Nil fields are
// left alone; the double pointers distinguish "set to NULL" from "keep".
type AccountUpdate struct {
	PasswordHash     *string
	IsActive         *bool
	FailedAttempts   *int
	IsLocked         *bool
	LockedUntil      **time.Time
	TwoFactorEnabled *bool
	TwoFactorSecret  **string
	LastLogin        **time.Time
}

// ClearLockout returns an update resetting the lockout state.
func ClearLockout() AccountUpdate {
	zero, unlocked := 0, false
	var until *time.Time
	return AccountUpdate{FailedAttempts: &zero, IsLocked: &unlocked, LockedUntil: &until}
}
