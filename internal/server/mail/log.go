package mail

import (
	"context"

	"github.com/dmitrijs2005/credgate/internal/logging"
)

// LogSender records outbound mail in the log instead of delivering it.
// It is used when no SMTP relay is configured. The body is not logged
// because it carries the verification code.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(l logging.Logger) *LogSender {
	return &LogSender{logger: l.With("module", "mail")}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.Info(ctx, "email not delivered: no smtp relay configured", "to", msg.To, "subject", msg.Subject)
	return nil
}
