package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/credgate/internal/common"
	"github.com/dmitrijs2005/credgate/internal/logging"
	"github.com/dmitrijs2005/credgate/internal/server/config"
	"github.com/dmitrijs2005/credgate/internal/server/mail"
)

// verificationCodeBytes is the entropy of a verification code; the stored
// code is its hex encoding.
const verificationCodeBytes = 64

// ConfirmationTokenService issues, emails and consumes single-use email
// verification codes.
type ConfirmationTokenService struct {
	deps    Deps
	mailer  Mailer
	limiter *RateLimiter
	baseURL string
	from    string
	logger  logging.Logger
}

func NewConfirmationTokenService(d Deps, mailer Mailer, cfg *config.Config) *ConfirmationTokenService {
	return &ConfirmationTokenService{
		deps:    d,
		mailer:  mailer,
		limiter: NewRateLimiter(cfg.ConfirmationEmailInterval),
		baseURL: cfg.PublicBaseURL,
		from:    cfg.MailFrom,
		logger:  d.logger("confirmation"),
	}
}

// Issue generates a fresh verification code and stores it on the account.
// It does not send mail.
func (s *ConfirmationTokenService) Issue(ctx context.Context, uid string) (string, error) {
	acc, err := s.deps.Repos.Accounts(s.deps.DB).GetByUID(ctx, uid)
	if err != nil {
		return "", lookupErr(err)
	}
	if acc.Verified {
		return "", common.ErrAlreadyVerified
	}
	return s.storeNewCode(ctx, uid)
}

func (s *ConfirmationTokenService) storeNewCode(ctx context.Context, uid string) (string, error) {
	code, err := common.MakeRandHexString(verificationCodeBytes)
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	if err := s.deps.Repos.Accounts(s.deps.DB).SetVerificationCode(ctx, uid, code, s.deps.now()()); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// verified between the read and the write
			return "", common.ErrAlreadyVerified
		}
		return "", fmt.Errorf("error storing verification code: %w", err)
	}
	return code, nil
}

// RequestEmail sends the confirmation email for uid. At most one email per
// configured interval is sent. The throttle timestamp is written before
// delivery and stays written when delivery fails.
func (s *ConfirmationTokenService) RequestEmail(ctx context.Context, uid string) error {
	repo := s.deps.Repos.Accounts(s.deps.DB)

	acc, err := repo.GetByUID(ctx, uid)
	if err != nil {
		return lookupErr(err)
	}
	if acc.Verified {
		s.deps.Metrics.ConfirmationEmail("already_verified")
		return common.ErrAlreadyVerified
	}

	now := s.deps.now()()
	if wait := s.limiter.RetryAfter(acc.LastConfirmationEmailSent, now); wait > 0 {
		s.deps.Metrics.ConfirmationEmail("throttled")
		return &RateLimitedError{RetryAfter: wait}
	}

	if err := repo.TouchConfirmationEmailSent(ctx, uid, now); err != nil {
		return fmt.Errorf("error updating confirmation timestamp: %w", err)
	}

	code := ""
	if acc.HasVerificationCode() {
		code = *acc.VerificationCode
	} else {
		if code, err = s.storeNewCode(ctx, uid); err != nil {
			return err
		}
	}

	msg, err := mail.ConfirmationMessage(s.from, acc.Email, mail.ConfirmationURL(s.baseURL, uid, code))
	if err != nil {
		return fmt.Errorf("error rendering confirmation email: %w", err)
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		s.deps.Metrics.ConfirmationEmail("delivery_failed")
		s.logger.Warn(ctx, "confirmation email delivery failed", "uid", uid, "error", err)
		return fmt.Errorf("%w: %v", common.ErrDeliveryFailed, err)
	}

	s.deps.Metrics.ConfirmationEmail("sent")
	s.logger.Info(ctx, "confirmation email sent", "uid", uid)
	return nil
}

// Confirm marks the account verified when key matches its stored code.
// Exactly one caller can succeed for a given account.
func (s *ConfirmationTokenService) Confirm(ctx context.Context, uid, key string) error {
	repo := s.deps.Repos.Accounts(s.deps.DB)

	if key != "" {
		ok, err := repo.ConfirmVerification(ctx, uid, key, s.deps.now()())
		if err != nil {
			return fmt.Errorf("error confirming account: %w", err)
		}
		if ok {
			s.deps.Metrics.Confirmation("confirmed")
			s.logger.Info(ctx, "account verified", "uid", uid)
			return nil
		}
	}

	// nothing changed; work out why
	acc, err := repo.GetByUID(ctx, uid)
	if err != nil {
		return lookupErr(err)
	}
	if acc.Verified {
		s.deps.Metrics.Confirmation("already_verified")
		return common.ErrAlreadyVerified
	}
	s.deps.Metrics.Confirmation("invalid_key")
	return common.ErrInvalidKey
}

// lookupErr passes ErrorNotFound through and wraps everything else.
func lookupErr(err error) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrorNotFound
	}
	return fmt.Errorf("error loading account: %w", err)
}
