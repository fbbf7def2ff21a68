package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, r := range Roles {
		got, err := ParseRole(string(r))
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	for _, bad := range []string{"", "Admin", "superuser", "security_officer"} {
		_, err := ParseRole(bad)
		assert.Error(t, err, bad)
		assert.False(t, Role(bad).Valid())
	}
}

func TestAccount_LockedAt(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Minute)
	past := now.Add(-time.Second)

	assert.True(t, (&Account{IsLocked: true, LockedUntil: &future}).LockedAt(now))
	assert.False(t, (&Account{IsLocked: true, LockedUntil: &past}).LockedAt(now))
	assert.False(t, (&Account{IsLocked: true}).LockedAt(now))
	assert.False(t, (&Account{IsLocked: false, LockedUntil: &future}).LockedAt(now))
}

func TestAccount_PublicHidesSecrets(t *testing.T) {
	secret := "JBSWY3DPEHPK3PXP"
	house := int64(7)
	a := &Account{
		ID: "u1", Email: "a@b.c", PasswordHash: "$2a$12$x", FirstName: "Ana", LastName: "Ruiz",
		Role: RoleResident, HouseID: &house, TwoFactorEnabled: true, TwoFactorSecret: &secret,
	}

	assert.Equal(t, PublicAccount{
		ID: "u1", Email: "a@b.c", FirstName: "Ana", LastName: "Ruiz",
		Role: RoleResident, HouseID: &house, TwoFactorEnabled: true,
	}, a.Public())
}

func TestSession_UsableAt(t *testing.T) {
	now := time.Now()

	assert.True(t, (&Session{ExpiresAt: now.Add(time.Hour)}).UsableAt(now))
	assert.False(t, (&Session{ExpiresAt: now.Add(time.Hour), Revoked: true}).UsableAt(now))
	assert.False(t, (&Session{ExpiresAt: now}).UsableAt(now))
}

func TestClearLockout(t *testing.T) {
	u := ClearLockout()

	require.NotNil(t, u.FailedAttempts)
	require.NotNil(t, u.IsLocked)
	require.NotNil(t, u.LockedUntil)
	assert.Equal(t, 0, *u.FailedAttempts)
	assert.False(t, *u.IsLocked)
	assert.Nil(t, *u.LockedUntil)
	assert.Nil(t, u.PasswordHash)
}
