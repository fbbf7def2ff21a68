package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rosedal2/condoauth/internal/flagx"
	"github.com/rosedal2/condoauth/internal/timex"
)

// JsonConfig is the on-disk shape of the JSON configuration file. Duration
// fields accept "15m"-style strings or integer nanoseconds. Zero values
// leave the corresponding setting untouched.
type JsonConfig struct {
	DatabaseDSN          string         `json:"database_dsn"`
	AccessSecret         string         `json:"access_secret"`
	RefreshSecret        string         `json:"refresh_secret"`
	AccessTTL            timex.Duration `json:"access_ttl"`
	RefreshTTL           timex.Duration `json:"refresh_ttl"`
	TempTTL              timex.Duration `json:"temp_ttl"`
	EncryptionKeyHex     string         `json:"encryption_key"`
	MaxLoginAttempts     int            `json:"max_login_attempts"`
	LockDuration         timex.Duration `json:"lock_duration"`
	BcryptCost           int            `json:"bcrypt_cost"`
	TOTPIssuer           string         `json:"totp_issuer"`
	TOTPWindow           *int           `json:"totp_window"`
	RedisAddr            string         `json:"redis_addr"`
	RedisPassword        string         `json:"redis_password"`
	RedisDB              int            `json:"redis_db"`
	S3RootUser           string         `json:"s3_root_user"`
	S3RootPassword       string         `json:"s3_root_password"`
	S3Bucket             string         `json:"s3_bucket"`
	S3Region             string         `json:"s3_region"`
	S3BaseEndpoint       string         `json:"s3_base_endpoint"`
	LogLevel             string         `json:"log_level"`
	LogFormat            string         `json:"log_format"`
	SessionPurgeInterval timex.Duration `json:"session_purge_interval"`
}

// parseJson overlays values from the JSON file given by -c or -config.
// Without the flag nothing is loaded.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.AccessSecret, c.AccessSecret)
	setString(&config.RefreshSecret, c.RefreshSecret)
	setDuration(&config.AccessTTL, c.AccessTTL)
	setDuration(&config.RefreshTTL, c.RefreshTTL)
	setDuration(&config.TempTTL, c.TempTTL)
	setString(&config.EncryptionKeyHex, c.EncryptionKeyHex)
	setInt(&config.MaxLoginAttempts, c.MaxLoginAttempts)
	setDuration(&config.LockDuration, c.LockDuration)
	setInt(&config.BcryptCost, c.BcryptCost)
	setString(&config.TOTPIssuer, c.TOTPIssuer)
	if c.TOTPWindow != nil {
		config.TOTPWindow = *c.TOTPWindow
	}
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	setInt(&config.RedisDB, c.RedisDB)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	setDuration(&config.SessionPurgeInterval, c.SessionPurgeInterval)

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
