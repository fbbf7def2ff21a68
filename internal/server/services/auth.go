// Package services contains server-side business logic. AuthService is the
// authentication state machine: registration, login with progressive lockout
// and TOTP, refresh-token rotation, logout, 2FA management and password
// changes. SignatureVault keeps visitor signatures encrypted at rest.
package services

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/rosedal2/condoauth/internal/audit"
	"github.com/rosedal2/condoauth/internal/common"
	"github.com/rosedal2/condoauth/internal/logging"
	"github.com/rosedal2/condoauth/internal/password"
	"github.com/rosedal2/condoauth/internal/server/auth"
	"github.com/rosedal2/condoauth/internal/server/config"
	"github.com/rosedal2/condoauth/internal/server/models"
	"github.com/rosedal2/condoauth/internal/server/repositories/repomanager"
	"github.com/rosedal2/condoauth/internal/server/tempgrant"
	"github.com/rosedal2/condoauth/internal/totp"
)

const (
	msgInvalidCredentials = "invalid credentials"
	msgAccountInactive    = "account inactive"
	msgInvalidRefresh     = "invalid refresh token"
	msgInvalidTempToken   = "invalid or expired temporary token"
	msgInvalid2FACode     = "invalid two-factor code"
	msgUserNotFound       = "user not found"
)

// Settings are the security knobs read on every call, so a config reload
// takes effect without rebuilding the service.
type Settings struct {
	MaxLoginAttempts int
	LockDuration     time.Duration
	TOTPWindow       int
	TempTTL          time.Duration
	SessionTTL       time.Duration
}

func SettingsFromConfig(c *config.Config) Settings {
	return Settings{
		MaxLoginAttempts: c.MaxLoginAttempts,
		LockDuration:     c.LockDuration,
		TOTPWindow:       c.TOTPWindow,
		TempTTL:          c.TempTTL,
		SessionTTL:       c.RefreshTTL,
	}
}

// AuthDeps lists the collaborators of AuthService. Audit, Log and Now are
// optional.
type AuthDeps struct {
	DB       *sql.DB
	Repos    repomanager.RepositoryManager
	Hasher   *password.Hasher
	TOTP     *totp.Engine
	Issuer   *auth.Issuer
	Grants   tempgrant.Ledger
	Audit    audit.Emitter
	Log      logging.Logger
	Settings func() Settings
	Now      func() time.Time
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthResult is the outcome of Register and Login. When Requires2FA is set
// only TempToken is filled in.
type AuthResult struct {
	User         *models.PublicAccount
	AccessToken  string
	RefreshToken string
	Requires2FA  bool
	TempToken    string
}

type TwoFactorSetup struct {
	Secret          string
	ProvisioningURI string
}

type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *password.Hasher
	totp        *totp.Engine
	issuer      *auth.Issuer
	grants      tempgrant.Ledger
	audit       audit.Emitter
	log         logging.Logger
	settings    func() Settings
	now         func() time.Time
}

func NewAuthService(d AuthDeps) *AuthService {
	s := &AuthService{
		db:          d.DB,
		repomanager: d.Repos,
		hasher:      d.Hasher,
		totp:        d.TOTP,
		issuer:      d.Issuer,
		grants:      d.Grants,
		audit:       d.Audit,
		log:         d.Log,
		settings:    d.Settings,
		now:         d.Now,
	}
	if s.audit == nil {
		s.audit = audit.Nop{}
	}
	if s.log == nil {
		s.log = logging.Nop()
	}
	s.log = s.log.With("module", "auth")
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// HashToken is the session key of a raw refresh token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// internal logs err and hides it from the caller.
func (s *AuthService) internal(ctx context.Context, op string, err error) error {
	s.log.Error(ctx, "auth operation failed", "op", op, "error", err)
	return common.ErrInternal
}

func (s *AuthService) emit(ctx context.Context, actor, action, subject string, ip *string, details map[string]any) {
	e := models.AuditEntry{
		Action:     action,
		EntityType: common.EntityUser,
		IPAddress:  ip,
		Details:    details,
		CreatedAt:  s.now(),
	}
	if actor != "" {
		e.UserID = &actor
	}
	if subject != "" {
		e.EntityID = &subject
	}
	s.audit.Emit(ctx, e)
}

func (s *AuthService) issuePair(a *models.Account, twoFactorVerified bool) (*TokenPair, error) {
	claims := auth.NewClaims(a, twoFactorVerified)

	access, err := s.issuer.IssueAccessToken(claims)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issuer.IssueRefreshToken(claims)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) newSession(userID, refresh string, ip, ua *string) *models.Session {
	return &models.Session{
		UserID:    userID,
		TokenHash: HashToken(refresh),
		IPAddress: ip,
		UserAgent: ua,
		ExpiresAt: s.now().Add(s.settings().SessionTTL),
	}
}

func lockedMessage(until, now time.Time) string {
	minutes := int(math.Ceil(until.Sub(now).Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("account locked, try again in %d minutes", minutes)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
