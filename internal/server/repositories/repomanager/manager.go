package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/credgate/internal/dbx"
	"github.com/dmitrijs2005/credgate/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/credgate/internal/server/repositories/apikeys"
	"github.com/dmitrijs2005/credgate/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/credgate/internal/server/repositories/securityevents"
)

// RepositoryManager vends repositories bound to a DB handle or transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	ApiKeys(db dbx.DBTX) apikeys.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	SecurityEvents(db dbx.DBTX) securityevents.Repository
}
