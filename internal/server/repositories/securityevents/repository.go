// Package securityevents persists the append-only security audit trail.
package securityevents

import (
	"context"

	"github.com/dmitrijs2005/credgate/internal/server/models"
)

// Repository appends audit records. There is no update or delete.
type Repository interface {
	Append(ctx context.Context, e *models.SecurityEvent) error
}
