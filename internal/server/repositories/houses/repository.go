// Package houses provides the house lookup used to validate account house
// references, plus seeding for fresh installs.
package houses

import (
	"context"
	"fmt"

	"github.com/rosedal2/condoauth/internal/dbx"
)

type Repository interface {
	Exists(ctx context.Context, id int64) (bool, error)
	// Seed makes sure houses numbered 1..count exist and returns how many
	// were inserted.
	Seed(ctx context.Context, count int) (int64, error)
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM houses WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Seed(ctx context.Context, count int) (int64, error) {
	query := `
		INSERT INTO houses (house_number, status)
		SELECT n, 'active' FROM generate_series(1, $1) AS n
		ON CONFLICT (house_number) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, count)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
