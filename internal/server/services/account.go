package services

import (
	"context"
	"errors"
	"time"

	"github.com/rosedal2/condoauth/internal/common"
	"github.com/rosedal2/condoauth/internal/dbx"
	"github.com/rosedal2/condoauth/internal/password"
	"github.com/rosedal2/condoauth/internal/server/models"
)

// ChangePassword replaces the password and signs the user out everywhere.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	a, err := s.findAccount(ctx, "change password", userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(current, a.PasswordHash) {
		return common.Unauthorized("current password is incorrect")
	}
	if err := password.CheckPolicy(next); err != nil {
		return common.Validation(err.Error())
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return s.internal(ctx, "change password", err)
	}

	var revoked int64
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Accounts(tx).Update(ctx, a.ID, models.AccountUpdate{PasswordHash: &hash}); err != nil {
			return err
		}
		revoked, err = s.repomanager.Sessions(tx).RevokeAllForUser(ctx, a.ID)
		return err
	})
	if err != nil {
		return s.internal(ctx, "change password", err)
	}

	s.emit(ctx, a.ID, common.ActionPasswordChange, a.ID, nil, map[string]any{"revokedSessions": revoked})
	return nil
}

// Deactivate soft-deletes an account and revokes its sessions.
func (s *AuthService) Deactivate(ctx context.Context, userID, actorID string) error {
	a, err := s.findAccount(ctx, "deactivate", userID)
	if err != nil {
		return err
	}

	inactive := false
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Accounts(tx).Update(ctx, a.ID, models.AccountUpdate{IsActive: &inactive}); err != nil {
			return err
		}
		_, err := s.repomanager.Sessions(tx).RevokeAllForUser(ctx, a.ID)
		return err
	})
	if err != nil {
		return s.notFoundOrInternal(ctx, "deactivate", err)
	}

	s.emit(ctx, actorID, common.ActionDeactivate, a.ID, nil, nil)
	return nil
}

// Reactivate restores a deactivated account with a clean lockout state.
func (s *AuthService) Reactivate(ctx context.Context, userID, actorID string) error {
	u := models.ClearLockout()
	active := true
	u.IsActive = &active

	if err := s.repomanager.Accounts(s.db).Update(ctx, userID, u); err != nil {
		return s.notFoundOrInternal(ctx, "reactivate", err)
	}

	s.emit(ctx, actorID, common.ActionReactivate, userID, nil, nil)
	return nil
}

func (s *AuthService) Unlock(ctx context.Context, userID, actorID string) error {
	if err := s.repomanager.Accounts(s.db).Update(ctx, userID, models.ClearLockout()); err != nil {
		return s.notFoundOrInternal(ctx, "unlock", err)
	}

	s.emit(ctx, actorID, common.ActionUnlock, userID, nil, nil)
	return nil
}

// PurgeExpiredSessions removes sessions that expired before the cutoff.
func (s *AuthService) PurgeExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.repomanager.Sessions(s.db).DeleteExpired(ctx, before)
	if err != nil {
		return 0, s.internal(ctx, "purge sessions", err)
	}
	if n > 0 {
		s.log.Info(ctx, "expired sessions purged", "count", n)
	}
	return n, nil
}

func (s *AuthService) notFoundOrInternal(ctx context.Context, op string, err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.NotFound(msgUserNotFound)
	}
	return s.internal(ctx, op, err)
}
