package audit

import (
	"context"

	"github.com/dmitrijs2005/credgate/internal/dbx"
	"github.com/dmitrijs2005/credgate/internal/server/models"
	"github.com/dmitrijs2005/credgate/internal/server/repositories/securityevents"
)

// RepositoryFactory vends a security events repository for a DB handle.
// repomanager.RepositoryManager satisfies it.
type RepositoryFactory interface {
	SecurityEvents(db dbx.DBTX) securityevents.Repository
}

// PostgresSink appends events to the security_events table.
type PostgresSink struct {
	db    dbx.DBTX
	repos RepositoryFactory
}

func NewPostgresSink(db dbx.DBTX, repos RepositoryFactory) *PostgresSink {
	return &PostgresSink{db: db, repos: repos}
}

func (s *PostgresSink) Write(ctx context.Context, e *models.SecurityEvent) error {
	return s.repos.SecurityEvents(s.db).Append(ctx, e)
}
