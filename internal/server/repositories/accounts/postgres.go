package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rosedal2/condoauth/internal/common"
	"github.com/rosedal2/condoauth/internal/dbx"
	"github.com/rosedal2/condoauth/internal/server/models"
)

const emailConstraint = "accounts_email_key"

const selectColumns = `id, email, password_hash, first_name, last_name, phone, role, house_id,
		 is_active, failed_attempts, is_locked, locked_until,
		 two_factor_enabled, two_factor_secret, last_login, created_at, updated_at`

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the account with a fresh id. The email is stored lower-cased.
func (r *PostgresRepository) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	query :=
		`INSERT INTO accounts (id, email, password_hash, first_name, last_name, phone, role, house_id, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at, updated_at
		 `

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Email = strings.ToLower(a.Email)

	err := r.db.QueryRowContext(ctx, query,
		a.ID, a.Email, a.PasswordHash, a.FirstName, a.LastName, a.Phone, string(a.Role), a.HouseID, a.IsActive,
	).Scan(&a.CreatedAt, &a.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err, emailConstraint) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return a, nil
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + selectColumns + `
		 FROM accounts
		 WHERE email = lower($1)
		 `
	return r.scanOne(r.db.QueryRowContext(ctx, query, strings.TrimSpace(email)))
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + selectColumns + `
		 FROM accounts
		 WHERE id = $1
		 `
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.Account, error) {
	a := &models.Account{}
	err := row.Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.FirstName, &a.LastName, &a.Phone, &a.Role, &a.HouseID,
		&a.IsActive, &a.FailedAttempts, &a.IsLocked, &a.LockedUntil,
		&a.TwoFactorEnabled, &a.TwoFactorSecret, &a.LastLogin, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

// Update writes the non-nil fields of u. An empty update is a no-op.
func (r *PostgresRepository) Update(ctx context.Context, id string, u models.AccountUpdate) error {
	var (
		sets []string
		args []any
	)
	set := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if u.PasswordHash != nil {
		set("password_hash", *u.PasswordHash)
	}
	if u.IsActive != nil {
		set("is_active", *u.IsActive)
	}
	if u.FailedAttempts != nil {
		set("failed_attempts", *u.FailedAttempts)
	}
	if u.IsLocked != nil {
		set("is_locked", *u.IsLocked)
	}
	if u.LockedUntil != nil {
		set("locked_until", *u.LockedUntil)
	}
	if u.TwoFactorEnabled != nil {
		set("two_factor_enabled", *u.TwoFactorEnabled)
	}
	if u.TwoFactorSecret != nil {
		set("two_factor_secret", *u.TwoFactorSecret)
	}
	if u.LastLogin != nil {
		set("last_login", *u.LastLogin)
	}

	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf(
		`UPDATE accounts SET %s, updated_at = now() WHERE id = $%d`,
		strings.Join(sets, ", "), len(args),
	)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	ok, err := dbx.AffectedOne(res)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if !ok {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) RecordFailedAttempt(ctx context.Context, id string, threshold int, lockUntil time.Time) (int, bool, error) {
	query :=
		`UPDATE accounts
		 SET failed_attempts = failed_attempts + 1,
		     is_locked = (failed_attempts + 1 >= $2::int),
		     locked_until = CASE WHEN failed_attempts + 1 >= $2::int THEN $3::timestamptz ELSE NULL END,
		     updated_at = now()
		 WHERE id = $1
		 RETURNING failed_attempts, is_locked
		 `

	var (
		attempts int
		locked   bool
	)
	err := r.db.QueryRowContext(ctx, query, id, threshold, lockUntil).Scan(&attempts, &locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, common.ErrorNotFound
		}
		return 0, false, fmt.Errorf("db error: %w", err)
	}

	return attempts, locked, nil
}
