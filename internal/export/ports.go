package export

import (
	"context"

	"paycal/internal/storage"
)

// Ports for outbound audit-trail adapters.
type (
	// Appender writes an approved modification to the audit trail and
	// returns an opaque reference to the written row.
	Appender interface {
		Append(ctx context.Context, m storage.Modification) (rowRef string, err error)
	}
)
