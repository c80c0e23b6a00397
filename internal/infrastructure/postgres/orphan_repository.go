package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/kds-identity-api/internal/domain"
	"github.com/jhoicas/kds-identity-api/internal/domain/entity"
	"github.com/jhoicas/kds-identity-api/internal/domain/repository"
)

var _ repository.OrphanRepository = (*OrphanRepo)(nil)

// OrphanRepo identidades cuya compensación falló (tabla orphaned_identities).
type OrphanRepo struct {
	db Querier
}

// NewOrphanRepository acepta el pool o una tx.
func NewOrphanRepository(db Querier) *OrphanRepo {
	return &OrphanRepo{db: db}
}

// Create registra un huérfano.
func (r *OrphanRepo) Create(ctx context.Context, o *entity.OrphanRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO orphaned_identities (id, identity_id, email, profile_kind, flow, reason, attempts, last_error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.ID, o.IdentityID, o.Email, string(o.ProfileKind), o.Flow, o.Reason, o.Attempts, o.LastError, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert orphaned identity: %w", err)
	}
	return nil
}

// ListUnresolved pendientes, los más antiguos primero.
func (r *OrphanRepo) ListUnresolved(ctx context.Context, limit int) ([]*entity.OrphanRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, identity_id, email, profile_kind, flow, reason, attempts, last_error, created_at, resolved_at
		FROM orphaned_identities WHERE resolved_at IS NULL
		ORDER BY created_at LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list orphaned identities: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.OrphanRecord, 0)
	for rows.Next() {
		var o entity.OrphanRecord
		var kind string
		if err := rows.Scan(&o.ID, &o.IdentityID, &o.Email, &kind, &o.Flow, &o.Reason, &o.Attempts, &o.LastError, &o.CreatedAt, &o.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan orphaned identity: %w", err)
		}
		o.ProfileKind = entity.ProfileKind(kind)
		list = append(list, &o)
	}
	return list, rows.Err()
}

// MarkResolved cierra el huérfano.
func (r *OrphanRepo) MarkResolved(ctx context.Context, id string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE orphaned_identities SET resolved_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("resolve orphaned identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RecordAttempt suma un intento fallido.
func (r *OrphanRepo) RecordAttempt(ctx context.Context, id, lastError string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE orphaned_identities SET attempts = attempts + 1, last_error = $2 WHERE id = $1`, id, lastError)
	if err != nil {
		return fmt.Errorf("record orphan attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
