package securityevents

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/credgate/internal/dbx"
	"github.com/dmitrijs2005/credgate/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *PostgresRepository) Append(ctx context.Context, e *models.SecurityEvent) error {
	query :=
		`INSERT INTO security_events (id, account_id, message, ip_address, user_agent, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 `
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.AccountID, e.Message, nullable(e.IPAddress), nullable(e.UserAgent), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
