package models

import "time"

// Account is one registered user. Verified moves from false to true exactly
// once, and a verified account never carries a verification code.
type Account struct {
	UID                       string
	Email                     string
	PasswordHash              string
	Verified                  bool
	VerificationCode          *string
	LastConfirmationEmailSent *time.Time
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// HasVerificationCode reports whether a pending code is stored.
func (a *Account) HasVerificationCode() bool {
	return a.VerificationCode != nil && *a.VerificationCode != ""
}
