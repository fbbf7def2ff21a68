package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rosedal2/condoauth/internal/server/models"
)

func TestAppend(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresRepository(db)

	uid := "u1"
	ip := "192.168.1.10"
	created := time.Now()
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+audit_logs\b.*RETURNING\s+id,\s*created_at\s*$`).
		WithArgs(uid, "user.login", "User", uid, ip, []byte(`{"role":"admin"}`), nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(41), created))

	e := &models.AuditEntry{
		UserID: &uid, Action: "user.login", EntityType: "User", EntityID: &uid, IPAddress: &ip,
		Details: map[string]any{"role": "admin"},
	}
	require.NoError(t, repo.Append(context.Background(), e))

	assert.Equal(t, int64(41), e.ID)
	assert.True(t, e.CreatedAt.Equal(created))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_NoDetailsIsNull(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+audit_logs`).
		WithArgs(nil, "user.unlock", "User", nil, nil, nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), time.Now()))

	require.NoError(t, NewPostgresRepository(db).Append(context.Background(), &models.AuditEntry{Action: "user.unlock", EntityType: "User"}))
}

func TestAppend_KeepsCallerTimestamp(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	stamped := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)INSERT\s+INTO\s+audit_logs\s+\(.*created_at\).*COALESCE\(\$7::timestamptz,\s*now\(\)\)`).
		WithArgs(nil, "user.lock", "User", nil, nil, nil, stamped).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), stamped))

	e := &models.AuditEntry{Action: "user.lock", EntityType: "User", CreatedAt: stamped}
	require.NoError(t, NewPostgresRepository(db).Append(context.Background(), e))

	assert.True(t, e.CreatedAt.Equal(stamped))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppend_DBError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO audit_logs`).WillReturnError(errors.New("disk full"))

	err = NewPostgresRepository(db).Append(context.Background(), &models.AuditEntry{Action: "x"})
	assert.ErrorContains(t, err, "disk full")
}

func TestAppend_UnmarshalableDetails(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	err = NewPostgresRepository(db).Append(context.Background(), &models.AuditEntry{Details: map[string]any{"ch": make(chan int)}})
	assert.ErrorContains(t, err, "marshal audit details")
}
