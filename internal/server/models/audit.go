package models

import "time"

// AuditEntry is one append-only audit log record.
type AuditEntry struct {
	ID         int64
	UserID     *string
	Action     string
	EntityType string
	EntityID   *string
	IPAddress  *string
	Details    map[string]any
	CreatedAt  time.Time
}
