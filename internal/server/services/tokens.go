package services

import (
	"context"
	"errors"

	"github.com/rosedal2/condoauth/internal/common"
	"github.com/rosedal2/condoauth/internal/dbx"
	"github.com/rosedal2/condoauth/internal/server/auth"
	"github.com/rosedal2/condoauth/internal/server/models"
)

// RefreshToken rotates a refresh token: the presented session is revoked and
// a new pair backed by a fresh session is returned. A token can be rotated
// only once; a concurrent or later replay fails with ErrUnauthorized.
func (s *AuthService) RefreshToken(ctx context.Context, raw string) (*TokenPair, error) {
	now := s.now()

	session, err := s.repomanager.Sessions(s.db).FindByHash(ctx, HashToken(raw))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Unauthorized(msgInvalidRefresh)
		}
		return nil, s.internal(ctx, "refresh", err)
	}
	if !session.UsableAt(now) {
		return nil, common.Unauthorized(msgInvalidRefresh)
	}

	claims, err := s.issuer.Verify(raw, auth.KindRefresh)
	if err != nil || claims.Subject != session.UserID {
		return nil, common.Unauthorized(msgInvalidRefresh)
	}

	a, err := s.repomanager.Accounts(s.db).FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Unauthorized(msgInvalidRefresh)
		}
		return nil, s.internal(ctx, "refresh", err)
	}
	if !a.IsActive {
		return nil, common.Unauthorized(msgAccountInactive)
	}

	var pair *TokenPair
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		sessions := s.repomanager.Sessions(tx)

		revoked, err := sessions.Revoke(ctx, session.ID)
		if err != nil {
			return err
		}
		if !revoked {
			return common.Unauthorized(msgInvalidRefresh)
		}

		pair, err = s.issuePair(a, claims.TwoFactorVerified)
		if err != nil {
			return err
		}
		return sessions.Create(ctx, s.newSession(a.ID, pair.RefreshToken, session.IPAddress, session.UserAgent))
	})
	if err != nil {
		if errors.Is(err, common.ErrUnauthorized) {
			s.log.Warn(ctx, "refresh token replayed", "user_id", a.ID, "session_id", session.ID)
			return nil, err
		}
		return nil, s.internal(ctx, "refresh", err)
	}

	return pair, nil
}

// Logout revokes the session of a refresh token. Unknown or already revoked
// tokens are not an error.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	if _, err := s.repomanager.Sessions(s.db).RevokeByHash(ctx, HashToken(raw)); err != nil {
		return s.internal(ctx, "logout", err)
	}
	return nil
}

// Authenticate resolves an access token to the principal it was issued to.
// Temp and refresh tokens are rejected, and so are accounts that have since
// been deactivated or locked.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*auth.Principal, error) {
	claims, err := s.issuer.Verify(accessToken, auth.KindAccess)
	if err != nil {
		return nil, common.Unauthorized("invalid access token")
	}

	a, err := s.repomanager.Accounts(s.db).FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Unauthorized(msgUserNotFound)
		}
		return nil, s.internal(ctx, "authenticate", err)
	}
	if !a.IsActive {
		return nil, common.Unauthorized(msgAccountInactive)
	}
	if a.LockedAt(s.now()) {
		return nil, common.Unauthorized(lockedMessage(*a.LockedUntil, s.now()))
	}

	return &auth.Principal{Account: a.Public(), TwoFactorVerified: claims.TwoFactorVerified}, nil
}

// Profile returns the public view of an account.
func (s *AuthService) Profile(ctx context.Context, userID string) (*models.PublicAccount, error) {
	a, err := s.findAccount(ctx, "profile", userID)
	if err != nil {
		return nil, err
	}
	pub := a.Public()
	return &pub, nil
}

// findAccount maps a missing account to ErrNotFound.
func (s *AuthService) findAccount(ctx context.Context, op, userID string) (*models.Account, error) {
	a, err := s.repomanager.Accounts(s.db).FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound(msgUserNotFound)
		}
		return nil, s.internal(ctx, op, err)
	}
	return a, nil
}
