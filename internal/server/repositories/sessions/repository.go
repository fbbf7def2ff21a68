// Package sessions declares the session store: one row per issued refresh
// token, keyed by the SHA-256 digest of the token.
package sessions

import (
	"context"
	"time"

	"github.com/rosedal2/condoauth/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.Session) error

	// FindByHash returns common.ErrorNotFound when no session has the hash.
	FindByHash(ctx context.Context, tokenHash string) (*models.Session, error)

	// Revoke marks the session revoked only if it is not revoked yet and
	// reports whether this call did it. Exactly one of several concurrent
	// callers gets true.
	Revoke(ctx context.Context, id string) (bool, error)

	RevokeByHash(ctx context.Context, tokenHash string) (int64, error)
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)

	// DeleteExpired physically removes sessions that expired before cutoff.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
