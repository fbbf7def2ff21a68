package services

import (
	"context"

	"github.com/rosedal2/condoauth/internal/common"
	"github.com/rosedal2/condoauth/internal/server/models"
)

// Enable2FA starts 2FA enrolment. The secret is stored but stays inactive
// until Verify2FA confirms the user can produce codes from it.
func (s *AuthService) Enable2FA(ctx context.Context, userID string) (*TwoFactorSetup, error) {
	a, err := s.findAccount(ctx, "enable 2fa", userID)
	if err != nil {
		return nil, err
	}
	if a.TwoFactorEnabled {
		return nil, common.BadRequest("two-factor authentication already enabled")
	}

	secret, err := s.totp.GenerateSecret(a.Email)
	if err != nil {
		return nil, s.internal(ctx, "enable 2fa", err)
	}

	pending := &secret.Secret
	if err := s.repomanager.Accounts(s.db).Update(ctx, a.ID, models.AccountUpdate{TwoFactorSecret: &pending}); err != nil {
		return nil, s.internal(ctx, "enable 2fa", err)
	}

	return &TwoFactorSetup{Secret: secret.Secret, ProvisioningURI: secret.ProvisioningURI}, nil
}

func (s *AuthService) Verify2FA(ctx context.Context, userID, code string) error {
	a, err := s.findAccount(ctx, "verify 2fa", userID)
	if err != nil {
		return err
	}
	if a.TwoFactorSecret == nil {
		return common.BadRequest("two-factor setup not started")
	}
	if !s.totp.VerifyCode(*a.TwoFactorSecret, code, s.settings().TOTPWindow) {
		return common.BadRequest(msgInvalid2FACode)
	}

	enabled := true
	if err := s.repomanager.Accounts(s.db).Update(ctx, a.ID, models.AccountUpdate{TwoFactorEnabled: &enabled}); err != nil {
		return s.internal(ctx, "verify 2fa", err)
	}

	s.emit(ctx, a.ID, common.Action2FAEnabled, a.ID, nil, nil)
	return nil
}

// Disable2FA requires the account password and wipes the secret.
func (s *AuthService) Disable2FA(ctx context.Context, userID, password string) error {
	a, err := s.findAccount(ctx, "disable 2fa", userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(password, a.PasswordHash) {
		return common.Unauthorized("invalid password")
	}

	disabled := false
	var cleared *string
	u := models.AccountUpdate{TwoFactorEnabled: &disabled, TwoFactorSecret: &cleared}
	if err := s.repomanager.Accounts(s.db).Update(ctx, a.ID, u); err != nil {
		return s.internal(ctx, "disable 2fa", err)
	}

	s.emit(ctx, a.ID, common.Action2FADisabled, a.ID, nil, nil)
	return nil
}
