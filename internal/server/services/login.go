package services

import (
	"context"
	"errors"
	"time"

	"github.com/rosedal2/condoauth/internal/common"
	"github.com/rosedal2/condoauth/internal/dbx"
	"github.com/rosedal2/condoauth/internal/server/models"
	"github.com/rosedal2/condoauth/internal/server/tempgrant"
)

type LoginInput struct {
	Email         string
	Password      string
	TwoFactorCode string
	IPAddress     string
	UserAgent     string
}

// Login authenticates with email and password. Accounts with 2FA enabled
// either pass TwoFactorCode or get back a temp token for
// CompleteTwoFactorLogin.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	now := s.now()
	cfg := s.settings()
	accounts := s.repomanager.Accounts(s.db)
	ip := optional(in.IPAddress)

	a, err := accounts.FindByEmail(ctx, common.NormalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Unauthorized(msgInvalidCredentials)
		}
		return nil, s.internal(ctx, "login", err)
	}

	if a.LockedAt(now) {
		return nil, common.Unauthorized(lockedMessage(*a.LockedUntil, now))
	}
	if a.IsLocked {
		if err := accounts.Update(ctx, a.ID, models.ClearLockout()); err != nil {
			return nil, s.internal(ctx, "login", err)
		}
		a.IsLocked, a.FailedAttempts, a.LockedUntil = false, 0, nil
	}

	if !s.hasher.Verify(in.Password, a.PasswordHash) {
		return nil, s.recordFailure(ctx, a, cfg, now, ip)
	}

	if !a.IsActive {
		return nil, common.Unauthorized(msgAccountInactive)
	}

	verified := false
	if a.TwoFactorEnabled {
		if in.TwoFactorCode == "" {
			return s.startTwoFactor(ctx, a, cfg)
		}
		if a.TwoFactorSecret == nil || !s.totp.VerifyCode(*a.TwoFactorSecret, in.TwoFactorCode, cfg.TOTPWindow) {
			s.emit(ctx, a.ID, common.ActionLoginFailed, a.ID, ip, map[string]any{"reason": "2fa"})
			return nil, common.Unauthorized(msgInvalid2FACode)
		}
		verified = true
	}

	return s.completeLogin(ctx, a, verified, ip, optional(in.UserAgent))
}

// CompleteTwoFactorLogin is the second leg of a 2FA login. Each temp token
// is accepted once, whether or not the code turns out to be right.
func (s *AuthService) CompleteTwoFactorLogin(ctx context.Context, tempToken, code, ipAddress, userAgent string) (*AuthResult, error) {
	now := s.now()
	cfg := s.settings()

	claims, err := s.issuer.VerifyTemp(tempToken)
	if err != nil {
		return nil, common.Unauthorized(msgInvalidTempToken)
	}

	userID, err := s.grants.Consume(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, tempgrant.ErrGrantNotFound) {
			return nil, common.Unauthorized(msgInvalidTempToken)
		}
		return nil, s.internal(ctx, "complete 2fa login", err)
	}
	if userID != claims.Subject {
		return nil, common.Unauthorized(msgInvalidTempToken)
	}

	a, err := s.repomanager.Accounts(s.db).FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.Unauthorized(msgInvalidCredentials)
		}
		return nil, s.internal(ctx, "complete 2fa login", err)
	}
	if !a.IsActive {
		return nil, common.Unauthorized(msgAccountInactive)
	}
	if a.LockedAt(now) {
		return nil, common.Unauthorized(lockedMessage(*a.LockedUntil, now))
	}
	if !a.TwoFactorEnabled || a.TwoFactorSecret == nil {
		return nil, common.Unauthorized("two-factor authentication is not enabled")
	}

	ip := optional(ipAddress)
	if !s.totp.VerifyCode(*a.TwoFactorSecret, code, cfg.TOTPWindow) {
		s.emit(ctx, a.ID, common.ActionLoginFailed, a.ID, ip, map[string]any{"reason": "2fa"})
		return nil, common.Unauthorized(msgInvalid2FACode)
	}

	return s.completeLogin(ctx, a, true, ip, optional(userAgent))
}

// recordFailure bumps the failed-attempt counter atomically and locks the
// account when it reaches the threshold.
func (s *AuthService) recordFailure(ctx context.Context, a *models.Account, cfg Settings, now time.Time, ip *string) error {
	until := now.Add(cfg.LockDuration)

	attempts, locked, err := s.repomanager.Accounts(s.db).RecordFailedAttempt(ctx, a.ID, cfg.MaxLoginAttempts, until)
	if err != nil {
		return s.internal(ctx, "login", err)
	}

	if locked {
		s.emit(ctx, a.ID, common.ActionLocked, a.ID, ip, map[string]any{"attempts": attempts})
		s.log.Warn(ctx, "account locked", "user_id", a.ID, "attempts", attempts)
		return common.Unauthorized(lockedMessage(until, now))
	}

	s.emit(ctx, a.ID, common.ActionLoginFailed, a.ID, ip, map[string]any{"attempts": attempts})
	return common.Unauthorized(msgInvalidCredentials)
}

func (s *AuthService) startTwoFactor(ctx context.Context, a *models.Account, cfg Settings) (*AuthResult, error) {
	token, jti, err := s.issuer.IssueTempToken(a.ID)
	if err != nil {
		return nil, s.internal(ctx, "login", err)
	}
	if err := s.grants.Record(ctx, jti, a.ID, cfg.TempTTL); err != nil {
		return nil, s.internal(ctx, "login", err)
	}
	return &AuthResult{Requires2FA: true, TempToken: token}, nil
}

// completeLogin resets the counter, stamps the login time, issues a token
// pair and records its session.
func (s *AuthService) completeLogin(ctx context.Context, a *models.Account, verified bool, ip, ua *string) (*AuthResult, error) {
	now := s.now()

	zero := 0
	last := &now
	reset := models.AccountUpdate{FailedAttempts: &zero, LastLogin: &last}

	var pair *TokenPair
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Accounts(tx).Update(ctx, a.ID, reset); err != nil {
			return err
		}

		var err error
		pair, err = s.issuePair(a, verified)
		if err != nil {
			return err
		}
		return s.repomanager.Sessions(tx).Create(ctx, s.newSession(a.ID, pair.RefreshToken, ip, ua))
	})
	if err != nil {
		return nil, s.internal(ctx, "login", err)
	}

	a.FailedAttempts = 0
	a.LastLogin = &now

	s.emit(ctx, a.ID, common.ActionLogin, a.ID, ip, map[string]any{"twoFactorVerified": verified})

	pub := a.Public()
	return &AuthResult{User: &pub, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}
