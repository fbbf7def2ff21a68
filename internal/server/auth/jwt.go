// Package auth issues and verifies the JWTs used by condoauth and holds the
// route access policy.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rosedal2/condoauth/internal/common"
	"github.com/rosedal2/condoauth/internal/server/models"
)

// Kind selects the secret a full token is verified with.
type Kind int

const (
	KindAccess Kind = iota
	KindRefresh
)

func (k Kind) String() string {
	if k == KindRefresh {
		return "refresh"
	}
	return "access"
}

// Claims is the payload of access and refresh tokens. The subject is the
// account id.
type Claims struct {
	Email             string      `json:"email"`
	Role              models.Role `json:"role"`
	TwoFactorVerified bool        `json:"twoFactorVerified"`
	Temp              bool        `json:"temp,omitempty"`
	jwt.RegisteredClaims
}

// NewClaims builds the claims for an account.
func NewClaims(a *models.Account, twoFactorVerified bool) Claims {
	return Claims{
		Email:             a.Email,
		Role:              a.Role,
		TwoFactorVerified: twoFactorVerified,
		RegisteredClaims:  jwt.RegisteredClaims{Subject: a.ID},
	}
}

// TempClaims is the payload of a pre-2FA token. It carries no role.
type TempClaims struct {
	Temp bool `json:"temp"`
	jwt.RegisteredClaims
}

// Lifetimes are the token TTLs in effect at signing time.
type Lifetimes struct {
	Access  time.Duration
	Refresh time.Duration
	Temp    time.Duration
}

// IssuerConfig configures an Issuer. When Lifetimes is set it is consulted
// on every issue and the static TTL fields are ignored.
type IssuerConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	TempTTL       time.Duration
	Lifetimes     func() Lifetimes
	Now           func() time.Time
}

// Issuer signs and verifies HS256 tokens. It is safe for concurrent use.
type Issuer struct {
	cfg IssuerConfig
}

func NewIssuer(cfg IssuerConfig) *Issuer {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Lifetimes == nil {
		static := Lifetimes{Access: cfg.AccessTTL, Refresh: cfg.RefreshTTL, Temp: cfg.TempTTL}
		cfg.Lifetimes = func() Lifetimes { return static }
	}
	return &Issuer{cfg: cfg}
}

func (i *Issuer) RefreshTTL() time.Duration { return i.cfg.Lifetimes().Refresh }

func (i *Issuer) IssueAccessToken(c Claims) (string, error) {
	return i.sign(c, i.cfg.AccessSecret, i.cfg.Lifetimes().Access)
}

func (i *Issuer) IssueRefreshToken(c Claims) (string, error) {
	return i.sign(c, i.cfg.RefreshSecret, i.cfg.Lifetimes().Refresh)
}

// IssueTempToken returns a short-lived {sub, temp: true} token signed with
// the access secret, and its jti.
func (i *Issuer) IssueTempToken(subject string) (string, string, error) {
	now := i.cfg.Now()
	jti := uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, TempClaims{
		Temp: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.cfg.Lifetimes().Temp)),
		},
	})

	s, err := token.SignedString(i.cfg.AccessSecret)
	if err != nil {
		return "", "", err
	}
	return s, jti, nil
}

func (i *Issuer) sign(c Claims, secret []byte, ttl time.Duration) (string, error) {
	if c.Subject == "" {
		return "", errors.New("claims without subject")
	}
	now := i.cfg.Now()

	c.Temp = false
	c.ID = uuid.NewString()
	c.IssuedAt = jwt.NewNumericDate(now)
	c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
}

// Verify parses a full token of the given kind. Temp tokens, tokens signed
// with another secret or algorithm, expired tokens and tokens without a
// subject fail with common.ErrInvalidToken.
func (i *Issuer) Verify(token string, kind Kind) (*Claims, error) {
	secret := i.cfg.AccessSecret
	if kind == KindRefresh {
		secret = i.cfg.RefreshSecret
	}

	claims := &Claims{}
	if err := i.parse(token, claims, secret); err != nil {
		return nil, err
	}
	if claims.Temp || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// VerifyTemp accepts only temp tokens.
func (i *Issuer) VerifyTemp(token string) (*TempClaims, error) {
	claims := &TempClaims{}
	if err := i.parse(token, claims, i.cfg.AccessSecret); err != nil {
		return nil, err
	}
	if !claims.Temp || claims.Subject == "" || claims.ID == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

func (i *Issuer) parse(token string, claims jwt.Claims, secret []byte) error {
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.cfg.Now),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return common.ErrInvalidToken
	}
	return nil
}
