package repository

import (
	"context"
	"time"

	"github.com/jhoicas/kds-identity-api/internal/domain/entity"
)

// OrphanRepository registro de identidades huérfanas pendientes de compensar.
type OrphanRepository interface {
	Create(ctx context.Context, rec *entity.OrphanRecord) error
	ListUnresolved(ctx context.Context, limit int) ([]*entity.OrphanRecord, error)
	MarkResolved(ctx context.Context, id string, at time.Time) error
	RecordAttempt(ctx context.Context, id, lastError string) error
}
