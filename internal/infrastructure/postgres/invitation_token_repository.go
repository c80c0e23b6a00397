package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/kds-identity-api/internal/domain"
	"github.com/jhoicas/kds-identity-api/internal/domain/entity"
	"github.com/jhoicas/kds-identity-api/internal/domain/repository"
)

var _ repository.InvitationTokenRepository = (*InvitationTokenRepo)(nil)

// InvitationTokenRepo licencias de activación (tabla license_keys).
type InvitationTokenRepo struct {
	db Querier
}

// NewInvitationTokenRepository acepta el pool o una tx.
func NewInvitationTokenRepository(db Querier) *InvitationTokenRepo {
	return &InvitationTokenRepo{db: db}
}

const tokenColumns = `id, license_key, key_type, target_kind, target_id, consumed, consumed_by, consumed_at, expires_at, created_at`

// Create persiste una licencia nueva.
func (r *InvitationTokenRepo) Create(ctx context.Context, t *entity.InvitationToken) error {
	query := `INSERT INTO license_keys (` + tokenColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.Exec(ctx, query,
		t.ID, t.Token, t.KeyType, string(t.TargetKind), t.TargetID, t.Consumed,
		nullIfEmpty(t.ConsumedBy), t.ConsumedAt, t.ExpiresAt, t.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert license key: %w", err)
	}
	return nil
}

// GetByToken busca por el valor de la licencia.
func (r *InvitationTokenRepo) GetByToken(ctx context.Context, token string) (*entity.InvitationToken, error) {
	return r.getOne(ctx, `SELECT `+tokenColumns+` FROM license_keys WHERE license_key = $1`, token)
}

// GetByTarget licencia emitida para un perfil.
func (r *InvitationTokenRepo) GetByTarget(ctx context.Context, kind entity.ProfileKind, targetID string) (*entity.InvitationToken, error) {
	return r.getOne(ctx,
		`SELECT `+tokenColumns+` FROM license_keys WHERE target_kind = $1 AND target_id = $2 ORDER BY created_at DESC LIMIT 1`,
		string(kind), targetID)
}

// Consume compare-and-swap sobre consumed = false. Cero filas → ErrTokenAlreadyConsumed.
func (r *InvitationTokenRepo) Consume(ctx context.Context, token, consumedBy string, at time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE license_keys SET consumed = TRUE, consumed_by = $2, consumed_at = $3
		 WHERE license_key = $1 AND consumed = FALSE`,
		token, consumedBy, at,
	)
	if err != nil {
		return fmt.Errorf("consume license key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTokenAlreadyConsumed
	}
	return nil
}

func (r *InvitationTokenRepo) getOne(ctx context.Context, query string, args ...any) (*entity.InvitationToken, error) {
	var t entity.InvitationToken
	var kind string
	var consumedBy *string
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&t.ID, &t.Token, &t.KeyType, &kind, &t.TargetID, &t.Consumed, &consumedBy, &t.ConsumedAt, &t.ExpiresAt, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get license key: %w", err)
	}
	t.TargetKind = entity.ProfileKind(kind)
	t.ConsumedBy = derefString(consumedBy)
	return &t, nil
}
