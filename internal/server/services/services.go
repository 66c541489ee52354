// Package services contains the credential issuance and session lifecycle
// logic: account registration and login, email confirmation, session token
// rotation with replay detection, and API-key issuance.
package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/credgate/internal/logging"
	"github.com/dmitrijs2005/credgate/internal/server/mail"
	"github.com/dmitrijs2005/credgate/internal/server/metrics"
	"github.com/dmitrijs2005/credgate/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/credgate/internal/timex"
)

// Mailer delivers outbound email. mail.SMTPSender and mail.LogSender
// satisfy it.
type Mailer interface {
	Send(ctx context.Context, msg mail.Message) error
}

// SecurityEventLog is the append-only audit capability. Services write to it
// and never read from it.
type SecurityEventLog interface {
	Record(ctx context.Context, uid, message string) error
}

// PasswordHasher hashes and verifies passwords. cryptox.Argon2 satisfies it.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
}

// Deps are the collaborators every service needs.
type Deps struct {
	DB      *sql.DB
	Repos   repomanager.RepositoryManager
	Logger  logging.Logger
	Metrics *metrics.Metrics
	Now     timex.Clock
}

func (d Deps) now() timex.Clock {
	if d.Now == nil {
		return timex.SystemClock
	}
	return d.Now
}

func (d Deps) logger(module string) logging.Logger {
	return d.Logger.With("module", module)
}
