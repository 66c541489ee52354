package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/credgate/internal/common"
	"github.com/dmitrijs2005/credgate/internal/dbx"
	"github.com/dmitrijs2005/credgate/internal/logging"
	"github.com/dmitrijs2005/credgate/internal/server/models"
	"github.com/google/uuid"
)

// apiKeyBytes is the entropy of an API key token.
const apiKeyBytes = 32

// ApiKeyService issues and revokes long-lived API keys.
type ApiKeyService struct {
	deps   Deps
	audit  SecurityEventLog
	logger logging.Logger
}

func NewApiKeyService(d Deps, audit SecurityEventLog) *ApiKeyService {
	return &ApiKeyService{deps: d, audit: audit, logger: d.logger("apikeys")}
}

// Generate returns a new unguessable token value without storing it.
func (s *ApiKeyService) Generate() (string, error) {
	return common.MakeRandHexString(apiKeyBytes)
}

// Assign stores token for uid with the given capabilities. It returns false
// without touching storage when no capability is requested.
func (s *ApiKeyService) Assign(ctx context.Context, read, write, del bool, token, uid string) (bool, error) {
	perm := models.NewPermission(read, write, del)
	if perm == 0 {
		return false, nil
	}

	key := &models.ApiKey{
		ID:         uuid.NewString(),
		Token:      token,
		AccountID:  uid,
		Permission: perm,
		CreatedAt:  s.deps.now()(),
	}
	if _, err := s.deps.Repos.ApiKeys(s.deps.DB).Upsert(ctx, key); err != nil {
		return false, fmt.Errorf("error storing api key: %w", err)
	}

	s.deps.Metrics.ApiKey("issued")
	s.record(ctx, uid, fmt.Sprintf("Added token with following permission %d", perm))
	return true, nil
}

// Create generates a token and assigns it the bits present in perm. Bits
// outside read/write/delete are ignored; no known bit is a validation error.
func (s *ApiKeyService) Create(ctx context.Context, uid string, perm models.Permission) (string, error) {
	token, err := s.Generate()
	if err != nil {
		return "", fmt.Errorf("error generating api key: %w", err)
	}
	ok, err := s.Assign(ctx,
		perm.Has(models.PermissionRead),
		perm.Has(models.PermissionWrite),
		perm.Has(models.PermissionDelete),
		token, uid)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: permission must include read, write or delete", common.ErrorValidation)
	}
	return token, nil
}

// GetPermission returns the bitmask of the key matching token.
func (s *ApiKeyService) GetPermission(ctx context.Context, token string) (models.Permission, error) {
	if token == "" {
		return 0, common.ErrorNotFound
	}
	key, err := s.deps.Repos.ApiKeys(s.deps.DB).FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("error loading api key: %w", err)
	}
	return key.Permission, nil
}

func (s *ApiKeyService) List(ctx context.Context, uid string) ([]*models.ApiKey, error) {
	keys, err := s.deps.Repos.ApiKeys(s.deps.DB).ListByAccount(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("error listing api keys: %w", err)
	}
	return keys, nil
}

func (s *ApiKeyService) Get(ctx context.Context, uid, id string) (*models.ApiKey, error) {
	key, err := s.deps.Repos.ApiKeys(s.deps.DB).Get(ctx, uid, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading api key: %w", err)
	}
	return key, nil
}

// Revoke deletes key id owned by uid. The token string is read under the row
// lock before the delete, and the audit event naming it is written once the
// delete has committed, so a failed revoke leaves no event behind. Revoking
// a missing key is a no-op.
func (s *ApiKeyService) Revoke(ctx context.Context, uid, id string) error {
	var revoked *models.ApiKey

	err := dbx.WithTx(ctx, s.deps.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.deps.Repos.ApiKeys(tx)

		key, err := repo.GetForUpdate(ctx, uid, id)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil
			}
			return fmt.Errorf("error loading api key: %w", err)
		}

		if _, err := repo.Delete(ctx, uid, id); err != nil {
			return fmt.Errorf("error deleting api key: %w", err)
		}
		revoked = key
		return nil
	})
	if err != nil || revoked == nil {
		return err
	}

	s.record(ctx, uid, "Deleted token: "+revoked.Token)
	s.deps.Metrics.ApiKey("revoked")
	return nil
}

// record writes an audit event; failures are logged and do not block the
// operation.
func (s *ApiKeyService) record(ctx context.Context, uid, message string) {
	if err := s.audit.Record(ctx, uid, message); err != nil {
		s.logger.Error(ctx, "audit failed", "uid", uid, "error", err)
	}
}
