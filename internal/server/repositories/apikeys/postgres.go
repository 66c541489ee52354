package apikeys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/credgate/internal/common"
	"github.com/dmitrijs2005/credgate/internal/dbx"
	"github.com/dmitrijs2005/credgate/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanKey(s scanner) (*models.ApiKey, error) {
	k := &models.ApiKey{}
	var perm int16
	if err := s.Scan(&k.ID, &k.Token, &k.AccountID, &perm, &k.CreatedAt); err != nil {
		return nil, err
	}
	k.Permission = models.Permission(perm)
	return k, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, key *models.ApiKey) (*models.ApiKey, error) {
	query :=
		`INSERT INTO api_keys (id, token, account_id, permission, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (token, account_id) DO UPDATE SET permission = EXCLUDED.permission
		 RETURNING id, token, account_id, permission, created_at
		 `

	stored, err := scanKey(r.db.QueryRowContext(ctx, query,
		key.ID, key.Token, key.AccountID, int16(key.Permission), key.CreatedAt))
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return stored, nil
}

func (r *PostgresRepository) FindByToken(ctx context.Context, token string) (*models.ApiKey, error) {
	query :=
		`SELECT id, token, account_id, permission, created_at FROM api_keys
		 WHERE token = $1
		 `
	return r.one(r.db.QueryRowContext(ctx, query, token))
}

func (r *PostgresRepository) Get(ctx context.Context, uid, id string) (*models.ApiKey, error) {
	query :=
		`SELECT id, token, account_id, permission, created_at FROM api_keys
		 WHERE account_id = $1 AND id = $2
		 `
	return r.one(r.db.QueryRowContext(ctx, query, uid, id))
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, uid, id string) (*models.ApiKey, error) {
	query :=
		`SELECT id, token, account_id, permission, created_at FROM api_keys
		 WHERE account_id = $1 AND id = $2
		 FOR UPDATE
		 `
	return r.one(r.db.QueryRowContext(ctx, query, uid, id))
}

func (r *PostgresRepository) one(row *sql.Row) (*models.ApiKey, error) {
	k, err := scanKey(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return k, nil
}

func (r *PostgresRepository) ListByAccount(ctx context.Context, uid string) ([]*models.ApiKey, error) {
	query :=
		`SELECT id, token, account_id, permission, created_at FROM api_keys
		 WHERE account_id = $1
		 ORDER BY created_at, id
		 `

	rows, err := r.db.QueryContext(ctx, query, uid)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	keys := make([]*models.ApiKey, 0)
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return keys, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, uid, id string) (bool, error) {
	query :=
		`DELETE FROM api_keys
		 WHERE account_id = $1 AND id = $2
		 `
	res, err := r.db.ExecContext(ctx, query, uid, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}
