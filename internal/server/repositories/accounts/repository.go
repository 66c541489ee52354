// Package accounts declares the credential store: persistence for account
// records (email, password hash, verification state).
package accounts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/credgate/internal/server/models"
)

// Repository persists accounts. Lookups of absent rows return
// common.ErrorNotFound.
type Repository interface {
	// Create inserts a new account. A duplicate email yields common.ErrorAlreadyExists.
	Create(ctx context.Context, account *models.Account) (*models.Account, error)

	GetByUID(ctx context.Context, uid string) (*models.Account, error)

	// GetByEmail expects an already normalized email.
	GetByEmail(ctx context.Context, email string) (*models.Account, error)

	// SetVerificationCode stores code on an unverified account. It returns
	// common.ErrorNotFound when no unverified account with uid exists.
	SetVerificationCode(ctx context.Context, uid, code string, at time.Time) error

	// TouchConfirmationEmailSent records the last confirmation-email dispatch.
	TouchConfirmationEmailSent(ctx context.Context, uid string, at time.Time) error

	// ConfirmVerification marks the account verified and clears its code in a
	// single conditional update. It reports whether this call made the
	// transition; false means the account is missing, already verified, or
	// the code did not match.
	ConfirmVerification(ctx context.Context, uid, code string, at time.Time) (bool, error)

	// UpdatePasswordHash replaces the stored password hash.
	UpdatePasswordHash(ctx context.Context, uid, hash string, at time.Time) error
}
