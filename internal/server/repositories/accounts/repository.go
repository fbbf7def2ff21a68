// Package accounts declares the credential store: persistence of accounts,
// their lockout counters and 2FA state.
package accounts

import (
	"context"
	"time"

	"github.com/rosedal2/condoauth/internal/server/models"
)

// Repository defines account persistence. Lookups return common.ErrorNotFound
// when no row matches; Create returns common.ErrorAlreadyExists when the
// email is taken.
type Repository interface {
	Create(ctx context.Context, a *models.Account) (*models.Account, error)

	// FindByEmail matches case-insensitively.
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)

	Update(ctx context.Context, id string, u models.AccountUpdate) error

	// RecordFailedAttempt atomically increments the failed-attempt counter and
	// locks the account until lockUntil once the counter reaches threshold.
	// It returns the new counter and whether the account is now locked.
	RecordFailedAttempt(ctx context.Context, id string, threshold int, lockUntil time.Time) (int, bool, error)
}
