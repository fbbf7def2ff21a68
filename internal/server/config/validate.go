package config

import (
	"errors"
	"fmt"

	"github.com/rosedal2/condoauth/internal/cryptox"
	"github.com/rosedal2/condoauth/internal/password"
)

const minSecretLength = 32

// Validate checks the settings the security core depends on and reports
// every problem found.
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database DSN is required"))
	}
	if len(c.AccessSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("%s must be at least %d characters", EnvJWTSecret, minSecretLength))
	}
	if len(c.RefreshSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("%s must be at least %d characters", EnvJWTRefreshSecret, minSecretLength))
	} else if c.RefreshSecret == c.AccessSecret {
		errs = append(errs, fmt.Errorf("%s must differ from %s", EnvJWTRefreshSecret, EnvJWTSecret))
	}
	if _, err := cryptox.KeyFromHex(c.EncryptionKeyHex); err != nil {
		errs = append(errs, fmt.Errorf("%s must be 64 hex characters", EnvEncryptionKey))
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 || c.TempTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	if c.MaxLoginAttempts < 1 {
		errs = append(errs, fmt.Errorf("%s must be at least 1", EnvMaxLoginAttempts))
	}
	if c.LockDuration <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", EnvLockTimeMinutes))
	}
	if c.BcryptCost < password.MinCost || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("%s must be between %d and 31", EnvBcryptRounds, password.MinCost))
	}
	if c.TOTPWindow < 0 || c.TOTPWindow > 10 {
		errs = append(errs, fmt.Errorf("%s must be between 0 and 10", EnvTOTPWindow))
	}
	if c.SessionPurgeInterval <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", EnvSessionPurgeInterval))
	}

	return errors.Join(errs...)
}
