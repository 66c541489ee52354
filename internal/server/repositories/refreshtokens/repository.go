// Package refreshtokens declares the server-side repository contract for
// refresh-token consumption state.
package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/credgate/internal/server/models"
)

// Repository records which refresh token identifiers have been rotated.
type Repository interface {
	// Consume marks t.JTI as consumed. It reports true only for the single
	// caller whose write recorded the jti; every later call for the same jti
	// reports false. Check and mark happen in one statement.
	Consume(ctx context.Context, t *models.ConsumedRefreshToken) (bool, error)

	// PurgeExpired deletes consumed rows whose tokens expired before now and
	// returns how many were removed.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
