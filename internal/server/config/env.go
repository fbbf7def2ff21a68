package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/rosedal2/condoauth/internal/flagx"
)

// Environment variable names.
const (
	EnvDatabaseURL          = "DATABASE_URL"
	EnvJWTSecret            = "JWT_SECRET"
	EnvJWTRefreshSecret     = "JWT_REFRESH_SECRET"
	EnvJWTExpiration        = "JWT_EXPIRATION"
	EnvJWTRefreshExpiration = "JWT_REFRESH_EXPIRATION"
	EnvTempTokenExpiration  = "TEMP_TOKEN_EXPIRATION"
	EnvEncryptionKey        = "SIGNATURE_ENCRYPTION_KEY"
	EnvMaxLoginAttempts     = "MAX_LOGIN_ATTEMPTS"
	EnvLockTimeMinutes      = "LOCK_TIME_MINUTES"
	EnvBcryptRounds         = "BCRYPT_ROUNDS"
	EnvTOTPIssuer           = "TOTP_ISSUER"
	EnvTOTPWindow           = "TOTP_WINDOW"
	EnvRedisAddr            = "REDIS_ADDR"
	EnvRedisPassword        = "REDIS_PASSWORD"
	EnvRedisDB              = "REDIS_DB"
	EnvS3RootUser           = "S3_ROOT_USER"
	EnvS3RootPassword       = "S3_ROOT_PASSWORD"
	EnvS3Bucket             = "S3_BUCKET"
	EnvS3Region             = "S3_REGION"
	EnvS3BaseEndpoint       = "S3_BASE_ENDPOINT"
	EnvLogLevel             = "LOG_LEVEL"
	EnvLogFormat            = "LOG_FORMAT"
	EnvSessionPurgeInterval = "SESSION_PURGE_INTERVAL"
)

const defaultEnvFile = ".env"

// parseEnv overlays values from a dotenv file and the process environment.
// The file is the one given by -env, or ./.env when present. Variables set
// in the process environment win over the file.
func parseEnv(config *Config, args []string) error {
	values, err := readEnvFile(flagx.EnvFileFlag(args))
	if err != nil {
		return err
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := values[key]
		return v, ok
	}

	var errs []error
	str := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(dst *int, key string) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(dst *time.Duration, key string) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str(&config.DatabaseDSN, EnvDatabaseURL)
	str(&config.AccessSecret, EnvJWTSecret)
	str(&config.RefreshSecret, EnvJWTRefreshSecret)
	dur(&config.AccessTTL, EnvJWTExpiration)
	dur(&config.RefreshTTL, EnvJWTRefreshExpiration)
	dur(&config.TempTTL, EnvTempTokenExpiration)
	str(&config.EncryptionKeyHex, EnvEncryptionKey)
	num(&config.MaxLoginAttempts, EnvMaxLoginAttempts)

	lockMinutes := -1
	num(&lockMinutes, EnvLockTimeMinutes)
	if lockMinutes >= 0 {
		config.LockDuration = time.Duration(lockMinutes) * time.Minute
	}

	num(&config.BcryptCost, EnvBcryptRounds)
	str(&config.TOTPIssuer, EnvTOTPIssuer)
	num(&config.TOTPWindow, EnvTOTPWindow)
	str(&config.RedisAddr, EnvRedisAddr)
	str(&config.RedisPassword, EnvRedisPassword)
	num(&config.RedisDB, EnvRedisDB)
	str(&config.S3RootUser, EnvS3RootUser)
	str(&config.S3RootPassword, EnvS3RootPassword)
	str(&config.S3Bucket, EnvS3Bucket)
	str(&config.S3Region, EnvS3Region)
	str(&config.S3BaseEndpoint, EnvS3BaseEndpoint)
	str(&config.LogLevel, EnvLogLevel)
	str(&config.LogFormat, EnvLogFormat)
	dur(&config.SessionPurgeInterval, EnvSessionPurgeInterval)

	return errors.Join(errs...)
}

// readEnvFile parses a dotenv file without touching the process
// environment. An explicit path must exist; the implicit ./.env is optional.
func readEnvFile(path string) (map[string]string, error) {
	explicit := path != ""
	if !explicit {
		path = defaultEnvFile
	}

	values, err := godotenv.Read(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return values, nil
}

// ParseDuration extends time.ParseDuration with a whole-day suffix ("7d").
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
