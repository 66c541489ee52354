// Package audit records security events (API-key issuance and revocation,
// refresh-token replay, password changes) to an append-only sink.
package audit

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/credgate/internal/logging"
	"github.com/dmitrijs2005/credgate/internal/server/models"
	"github.com/dmitrijs2005/credgate/internal/timex"
	"github.com/oklog/ulid/v2"
)

// Sink persists one event.
type Sink interface {
	Write(ctx context.Context, e *models.SecurityEvent) error
}

// Log stamps events with an id, time and request metadata before handing
// them to a Sink.
type Log struct {
	sink   Sink
	now    timex.Clock
	logger logging.Logger
}

func NewLog(sink Sink, now timex.Clock, l logging.Logger) *Log {
	if now == nil {
		now = timex.SystemClock
	}
	return &Log{sink: sink, now: now, logger: l.With("module", "audit")}
}

// Record appends an event for uid. Client IP and user agent come from ctx.
func (l *Log) Record(ctx context.Context, uid, message string) error {
	at := l.now()
	meta := RequestMetaFrom(ctx)

	e := &models.SecurityEvent{
		ID:        ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String(),
		AccountID: uid,
		Message:   message,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
		CreatedAt: at,
	}

	if err := l.sink.Write(ctx, e); err != nil {
		l.logger.Error(ctx, "security event not recorded", "uid", uid, "event_id", e.ID, "error", err)
		return fmt.Errorf("record security event: %w", err)
	}
	l.logger.Info(ctx, "security event recorded", "uid", uid, "event_id", e.ID)
	return nil
}
