// Package repomanager vends repositories bound to a database handle, so a
// service can use the same stores on *sql.DB or inside a transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/rosedal2/condoauth/internal/dbx"
	"github.com/rosedal2/condoauth/internal/server/repositories/accounts"
	"github.com/rosedal2/condoauth/internal/server/repositories/audit"
	"github.com/rosedal2/condoauth/internal/server/repositories/houses"
	"github.com/rosedal2/condoauth/internal/server/repositories/sessions"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Houses(db dbx.DBTX) houses.Repository
	Audit(db dbx.DBTX) audit.Repository
}
