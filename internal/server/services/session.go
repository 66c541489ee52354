package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/credgate/internal/common"
	"github.com/dmitrijs2005/credgate/internal/logging"
	"github.com/dmitrijs2005/credgate/internal/server/auth"
	"github.com/dmitrijs2005/credgate/internal/server/config"
	"github.com/dmitrijs2005/credgate/internal/server/models"
)

// SessionTokenService issues access/refresh pairs, verifies access tokens
// and rotates refresh tokens with replay detection.
type SessionTokenService struct {
	deps   Deps
	codec  *auth.Codec
	audit  SecurityEventLog
	logger logging.Logger
}

func NewSessionTokenService(d Deps, audit SecurityEventLog, cfg *config.Config) *SessionTokenService {
	return &SessionTokenService{
		deps:   d,
		codec:  auth.NewCodec([]byte(cfg.SecretKey), cfg.AccessTokenValidityDuration, cfg.RefreshTokenValidityDuration, d.now()),
		audit:  audit,
		logger: d.logger("sessions"),
	}
}

// Issue mints a fresh pair for uid. Callers verify credentials first.
func (s *SessionTokenService) Issue(ctx context.Context, uid string) (*models.TokenPair, error) {
	pair, err := s.generateTokenPair(uid)
	if err != nil {
		return nil, err
	}
	s.deps.Metrics.SessionIssued("login")
	return pair, nil
}

// VerifyAccess checks an access token's signature, expiry and type and
// returns its subject. It performs no I/O.
func (s *SessionTokenService) VerifyAccess(token string) (string, error) {
	claims, err := s.codec.ParseAccess(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Refresh exchanges a refresh token for a new pair. The presented jti is
// consumed with a single conditional insert, so of any number of concurrent
// callers exactly one succeeds and the rest get common.ErrTokenReplay.
func (s *SessionTokenService) Refresh(ctx context.Context, token string) (*models.TokenPair, error) {
	claims, err := s.codec.ParseRefresh(token)
	if err != nil {
		s.deps.Metrics.Refresh("invalid")
		return nil, err
	}

	consumed := &models.ConsumedRefreshToken{
		JTI:        claims.JTI(),
		AccountID:  claims.Subject,
		ExpiresAt:  claims.ExpiresAt.Time,
		ConsumedAt: s.deps.now()(),
	}
	won, err := s.deps.Repos.RefreshTokens(s.deps.DB).Consume(ctx, consumed)
	if err != nil {
		return nil, fmt.Errorf("error consuming refresh token: %w", err)
	}
	if !won {
		s.deps.Metrics.Refresh("replay")
		s.logger.Warn(ctx, "refresh token replay", "uid", claims.Subject, "jti", claims.JTI())
		if err := s.audit.Record(ctx, claims.Subject, "Refresh token replay detected"); err != nil {
			s.logger.Error(ctx, "audit failed", "error", err)
		}
		return nil, common.ErrTokenReplay
	}

	pair, err := s.generateTokenPair(claims.Subject)
	if err != nil {
		return nil, err
	}
	s.deps.Metrics.Refresh("rotated")
	s.deps.Metrics.SessionIssued("refresh")
	return pair, nil
}

// PurgeConsumed drops consumption records of refresh tokens that have
// expired on their own.
func (s *SessionTokenService) PurgeConsumed(ctx context.Context) (int64, error) {
	n, err := s.deps.Repos.RefreshTokens(s.deps.DB).PurgeExpired(ctx, s.deps.now()())
	if err != nil {
		return 0, fmt.Errorf("error purging consumed refresh tokens: %w", err)
	}
	return n, nil
}

func (s *SessionTokenService) generateTokenPair(uid string) (*models.TokenPair, error) {
	access, err := s.codec.IssueAccess(uid)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, _, err := s.codec.IssueRefresh(uid)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
