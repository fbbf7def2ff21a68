// Package admin implements the authctl maintenance commands: schema
// migration, house seeding, bootstrap of the first admin account, key
// generation and session purging.
package admin

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/rosedal2/condoauth/internal/common"
	"github.com/rosedal2/condoauth/internal/cryptox"
	"github.com/rosedal2/condoauth/internal/flagx"
	"github.com/rosedal2/condoauth/internal/password"
	"github.com/rosedal2/condoauth/internal/server/config"
	"github.com/rosedal2/condoauth/internal/server/models"
	"github.com/rosedal2/condoauth/internal/server/repositories/repomanager"
)

// DefaultHouseCount is the number of houses in the condominium.
const DefaultHouseCount = 56

const usage = `usage: authctl <command> [flags]

commands:
  migrate                         apply database migrations
  seed-houses [-n 56]             create houses 1..n if missing
  seed-admin -email E [-first F -last L]
                                  create an admin account (password is prompted)
  gen-key                         print a new signature encryption key
  purge-sessions                  delete expired sessions
`

var ErrUsage = errors.New("invalid usage")

// Tool runs one command against the database in cfg.
type Tool struct {
	cfg   *config.Config
	db    *sql.DB
	repos repomanager.RepositoryManager
	in    *bufio.Reader
	out   io.Writer
	now   func() time.Time
}

func NewTool(cfg *config.Config, db *sql.DB, repos repomanager.RepositoryManager, in io.Reader, out io.Writer) *Tool {
	return &Tool{cfg: cfg, db: db, repos: repos, in: bufio.NewReader(in), out: out, now: time.Now}
}

// NeedsDatabase reports whether cmd talks to the database, so the caller
// knows whether to load the full configuration.
func NeedsDatabase(cmd string) bool {
	switch cmd {
	case "migrate", "seed-houses", "seed-admin", "purge-sessions":
		return true
	}
	return false
}

// Run executes cmd with its args. Args may also carry configuration flags;
// each command only parses its own.
func (t *Tool) Run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "migrate":
		return t.migrate(ctx)
	case "seed-houses":
		return t.seedHouses(ctx, args)
	case "seed-admin":
		return t.seedAdmin(ctx, args)
	case "gen-key":
		return GenKey(t.out)
	case "purge-sessions":
		return t.purgeSessions(ctx)
	case "help", "-h", "--help":
		fmt.Fprint(t.out, usage)
		return nil
	default:
		fmt.Fprint(t.out, usage)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

// GenKey prints a fresh 256-bit key in hex.
func GenKey(w io.Writer) error {
	_, err := fmt.Fprintln(w, cryptox.GenerateKeyHex())
	return err
}

func (t *Tool) migrate(ctx context.Context) error {
	if err := t.repos.RunMigrations(ctx, t.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	fmt.Fprintln(t.out, "migrations applied")
	return nil
}

func (t *Tool) seedHouses(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("seed-houses", flag.ContinueOnError)
	fs.SetOutput(t.out)
	n := fs.Int("n", DefaultHouseCount, "number of houses")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-n"})); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if *n < 1 {
		return fmt.Errorf("%w: -n must be positive", ErrUsage)
	}

	inserted, err := t.repos.Houses(t.db).Seed(ctx, *n)
	if err != nil {
		return err
	}
	fmt.Fprintf(t.out, "houses seeded: %d new, %d total\n", inserted, *n)
	return nil
}

func (t *Tool) seedAdmin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("seed-admin", flag.ContinueOnError)
	fs.SetOutput(t.out)
	email := fs.String("email", "", "admin email")
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-email", "-first", "-last"})); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	addr := common.NormalizeEmail(*email)
	if addr == "" {
		return fmt.Errorf("%w: -email is required", ErrUsage)
	}
	if !common.ValidEmail(addr) {
		return fmt.Errorf("%w: invalid email address %q", ErrUsage, addr)
	}

	var err error
	if *first == "" {
		if *first, err = GetSimpleText(t.in, "First name", t.out); err != nil {
			return err
		}
	}
	if *last == "" {
		if *last, err = GetSimpleText(t.in, "Last name", t.out); err != nil {
			return err
		}
	}

	pw, err := GetPassword("Password", t.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)
	confirm, err := GetPassword("Repeat password", t.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if string(pw) != string(confirm) {
		return errors.New("passwords do not match")
	}
	if err := password.CheckPolicy(string(pw)); err != nil {
		return err
	}

	hasher, err := password.NewHasher(t.cfg.BcryptCost)
	if err != nil {
		return err
	}
	hash, err := hasher.Hash(string(pw))
	if err != nil {
		return err
	}

	a, err := t.repos.Accounts(t.db).Create(ctx, &models.Account{
		Email:        addr,
		PasswordHash: hash,
		FirstName:    *first,
		LastName:     *last,
		Role:         models.RoleAdmin,
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return fmt.Errorf("account %s already exists", addr)
		}
		return err
	}

	fmt.Fprintf(t.out, "admin created: %s (%s)\n", a.Email, a.ID)
	return nil
}

func (t *Tool) purgeSessions(ctx context.Context) error {
	n, err := t.repos.Sessions(t.db).DeleteExpired(ctx, t.now())
	if err != nil {
		return err
	}
	fmt.Fprintf(t.out, "expired sessions deleted: %d\n", n)
	return nil
}
