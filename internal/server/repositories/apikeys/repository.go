// Package apikeys declares persistence for long-lived API keys.
package apikeys

import (
	"context"

	"github.com/dmitrijs2005/credgate/internal/server/models"
)

// Repository stores API keys keyed by id, unique by token.
type Repository interface {
	// Upsert inserts key or, when the (token, account) pair already exists,
	// replaces its permission. The stored row is returned.
	Upsert(ctx context.Context, key *models.ApiKey) (*models.ApiKey, error)

	// FindByToken returns common.ErrorNotFound for an unknown token.
	FindByToken(ctx context.Context, token string) (*models.ApiKey, error)

	ListByAccount(ctx context.Context, uid string) ([]*models.ApiKey, error)

	// Get returns the key with id owned by uid, or common.ErrorNotFound.
	Get(ctx context.Context, uid, id string) (*models.ApiKey, error)

	// GetForUpdate is Get with a row lock; use inside a transaction.
	GetForUpdate(ctx context.Context, uid, id string) (*models.ApiKey, error)

	// Delete removes the key and reports whether a row was deleted.
	Delete(ctx context.Context, uid, id string) (bool, error)
}
