package services

import (
	"context"
	"errors"
	"fmt"
	netmail "net/mail"
	"strings"
	"sync"
	"unicode"

	"github.com/dmitrijs2005/credgate/internal/common"
	"github.com/dmitrijs2005/credgate/internal/logging"
	"github.com/dmitrijs2005/credgate/internal/server/models"
	"github.com/google/uuid"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
)

// AccountService registers accounts, checks credentials and changes
// passwords. Sessions are issued by SessionTokenService once Login succeeds.
type AccountService struct {
	deps         Deps
	hasher       PasswordHasher
	confirmation *ConfirmationTokenService
	audit        SecurityEventLog
	logger       logging.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewAccountService(d Deps, hasher PasswordHasher, confirmation *ConfirmationTokenService, audit SecurityEventLog) *AccountService {
	return &AccountService{
		deps:         d,
		hasher:       hasher,
		confirmation: confirmation,
		audit:        audit,
		logger:       d.logger("accounts"),
	}
}

// NormalizeEmail trims and lower-cases an address and checks it parses as a
// bare RFC 5322 address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", common.ErrorValidation)
	}
	addr, err := netmail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", fmt.Errorf("%w: invalid email", common.ErrorValidation)
	}
	return email, nil
}

// ValidatePassword enforces length and character-class rules.
func ValidatePassword(password string) error {
	n := len([]rune(password))
	if n < minPasswordLength || n > maxPasswordLength {
		return fmt.Errorf("%w: password must be between %d and %d characters", common.ErrorValidation, minPasswordLength, maxPasswordLength)
	}

	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !lower || !upper || !digit {
		return fmt.Errorf("%w: password must contain a lower-case letter, an upper-case letter and a digit", common.ErrorValidation)
	}
	return nil
}

// Register creates an unverified account and sends its confirmation email.
// A failed email does not fail registration; the user can request another.
func (s *AccountService) Register(ctx context.Context, email, password string) (string, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return "", err
	}
	if err := ValidatePassword(password); err != nil {
		return "", err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}

	now := s.deps.now()()
	acc := &models.Account{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.deps.Repos.Accounts(s.deps.DB).Create(ctx, acc)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return "", fmt.Errorf("%w: unable to register with this email", common.ErrorValidation)
		}
		return "", fmt.Errorf("error creating account: %w", err)
	}

	if _, err := s.confirmation.Issue(ctx, created.UID); err != nil {
		return "", err
	}

	if err := s.confirmation.RequestEmail(ctx, created.UID); err != nil {
		s.logger.Warn(ctx, "confirmation email not sent at registration", "uid", created.UID, "error", err)
	}

	s.logger.Info(ctx, "account registered", "uid", created.UID)
	return created.UID, nil
}

// Login checks email and password and returns the account uid. Unknown
// email and wrong password are indistinguishable to the caller.
func (s *AccountService) Login(ctx context.Context, email, password string) (string, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		s.verifyDummy(password)
		return "", common.ErrorUnauthorized
	}

	acc, err := s.deps.Repos.Accounts(s.deps.DB).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.verifyDummy(password)
			return "", common.ErrorUnauthorized
		}
		return "", fmt.Errorf("error loading account: %w", err)
	}

	ok, err := s.hasher.Verify(password, acc.PasswordHash)
	if err != nil {
		return "", fmt.Errorf("error verifying password: %w", err)
	}
	if !ok {
		return "", common.ErrorUnauthorized
	}
	return acc.UID, nil
}

// ChangePassword replaces the password of uid after checking the current one.
func (s *AccountService) ChangePassword(ctx context.Context, uid, oldPassword, newPassword string) error {
	repo := s.deps.Repos.Accounts(s.deps.DB)

	acc, err := repo.GetByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return fmt.Errorf("error loading account: %w", err)
	}

	ok, err := s.hasher.Verify(oldPassword, acc.PasswordHash)
	if err != nil {
		return fmt.Errorf("error verifying password: %w", err)
	}
	if !ok {
		return common.ErrorUnauthorized
	}

	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	if err := repo.UpdatePasswordHash(ctx, uid, hash, s.deps.now()()); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}

	if err := s.audit.Record(ctx, uid, "Password changed"); err != nil {
		s.logger.Error(ctx, "audit failed", "uid", uid, "error", err)
	}
	return nil
}

// verifyDummy spends the same work as a real verification.
func (s *AccountService) verifyDummy(password string) {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash(uuid.NewString())
		if err == nil {
			s.dummyHash = h
		}
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(password, s.dummyHash)
	}
}
