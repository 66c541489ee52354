package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

const selectColumns = `uid, email, password_hash, verified, verification_code, last_confirmation_email_sent, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, a *models.Account) (*models.Account, error) {

	query :=
		`INSERT INTO accounts (uid, email, password_hash, verified, verification_code, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $6)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		a.UID, a.Email, a.PasswordHash, a.Verified, a.VerificationCode, a.CreatedAt).Scan(&a.CreatedAt, &a.UpdatedAt)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return a, nil
}

func (r *PostgresRepository) GetByUID(ctx context.Context, uid string) (*models.Account, error) {
	query := `SELECT ` + selectColumns + ` FROM accounts
		 WHERE uid = $1
		 `
	return r.scanOne(r.db.QueryRowContext(ctx, query, uid))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + selectColumns + ` FROM accounts
		 WHERE email = $1
		 `
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.Account, error) {
	a := &models.Account{}
	var code sql.NullString
	var sent sql.NullTime

	err := row.Scan(&a.UID, &a.Email, &a.PasswordHash, &a.Verified, &code, &sent, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if code.Valid {
		a.VerificationCode = &code.String
	}
	if sent.Valid {
		a.LastConfirmationEmailSent = &sent.Time
	}
	return a, nil
}

func (r *PostgresRepository) SetVerificationCode(ctx context.Context, uid, code string, at time.Time) error {
	query :=
		`UPDATE accounts SET verification_code = $2, updated_at = $3
		 WHERE uid = $1 AND verified = FALSE
		 `
	n, err := r.exec(ctx, query, uid, code, at)
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) TouchConfirmationEmailSent(ctx context.Context, uid string, at time.Time) error {
	query :=
		`UPDATE accounts SET last_confirmation_email_sent = $2, updated_at = $2
		 WHERE uid = $1
		 `
	n, err := r.exec(ctx, query, uid, at)
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) ConfirmVerification(ctx context.Context, uid, code string, at time.Time) (bool, error) {
	query :=
		`UPDATE accounts SET verified = TRUE, verification_code = NULL, updated_at = $3
		 WHERE uid = $1 AND verified = FALSE AND verification_code = $2
		 `
	n, err := r.exec(ctx, query, uid, code, at)
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, uid, hash string, at time.Time) error {
	query :=
		`UPDATE accounts SET password_hash = $2, updated_at = $3
		 WHERE uid = $1
		 `
	n, err := r.exec(ctx, query, uid, hash, at)
	if err != nil {
		return err
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
