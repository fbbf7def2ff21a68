package config

import (
	"flag"
	"io"
	"time"

	"github.com/rosedal2/condoauth/internal/flagx"
)

var knownFlags = []string{
	"-d", "-s", "-rs", "-t", "-r", "-k", "-redis",
	"-u", "-p", "-b", "-g", "-e", "-log-level",
}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-d string          PostgreSQL DSN
//	-s string          access token secret
//	-rs string         refresh token secret
//	-t int             access token validity, minutes
//	-r int             refresh token validity, minutes
//	-k string          signature encryption key (64 hex chars)
//	-redis string      Redis address for the temp-grant ledger
//	-u string          S3 root user
//	-p string          S3 root password
//	-b string          S3 bucket name
//	-g string          S3 region
//	-e string          S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-log-level string  debug, info, warn or error
//
// args are filtered with flagx.FilterArgs first, so subcommand flags of the
// CLI do not collide with these.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.AccessSecret, "s", config.AccessSecret, "access token secret")
	fs.StringVar(&config.RefreshSecret, "rs", config.RefreshSecret, "refresh token secret")

	accessMinutes := fs.Int("t", int(config.AccessTTL.Minutes()), "access token validity (in minutes)")
	refreshMinutes := fs.Int("r", int(config.RefreshTTL.Minutes()), "refresh token validity (in minutes)")

	fs.StringVar(&config.EncryptionKeyHex, "k", config.EncryptionKeyHex, "signature encryption key")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTTL = time.Duration(*accessMinutes) * time.Minute
		case "r":
			config.RefreshTTL = time.Duration(*refreshMinutes) * time.Minute
		}
	})
	return nil
}
