// Package audit persists audit log entries.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rosedal2/condoauth/internal/dbx"
	"github.com/rosedal2/condoauth/internal/server/models"
)

type Repository interface {
	Append(ctx context.Context, e *models.AuditEntry) error
}

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Append inserts e; Details is stored as JSONB. A zero CreatedAt falls back
// to the database clock.
func (r *PostgresRepository) Append(ctx context.Context, e *models.AuditEntry) error {
	query := `
		INSERT INTO audit_logs (user_id, action, entity_type, entity_id, ip_address, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7::timestamptz, now()))
		RETURNING id, created_at
	`

	var createdAt any
	if !e.CreatedAt.IsZero() {
		createdAt = e.CreatedAt
	}

	// nil, not an empty slice, so the column stays NULL.
	var details any
	if len(e.Details) > 0 {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
		details = b
	}

	err := r.db.QueryRowContext(ctx, query,
		e.UserID, e.Action, e.EntityType, e.EntityID, e.IPAddress, details, createdAt,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
