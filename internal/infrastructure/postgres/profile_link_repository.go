package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/kds-identity-api/internal/domain"
	"github.com/jhoicas/kds-identity-api/internal/domain/entity"
	"github.com/jhoicas/kds-identity-api/internal/domain/repository"
)

var _ repository.ProfileLinkRepository = (*ProfileLinkRepo)(nil)

// ProfileLinkRepo vínculos identidad → perfil (tabla profile_links).
type ProfileLinkRepo struct {
	db Querier
}

// NewProfileLinkRepository acepta el pool o una tx.
func NewProfileLinkRepository(db Querier) *ProfileLinkRepo {
	return &ProfileLinkRepo{db: db}
}

// Create inserta el vínculo; cualquier violación de unicidad es ErrDuplicateIdentity.
func (r *ProfileLinkRepo) Create(ctx context.Context, l *entity.ProfileLink) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO profile_links (identity_ref, profile_kind, profile_id, created_at) VALUES ($1, $2, $3, $4)`,
		l.IdentityRef, string(l.Kind), l.ProfileID, l.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateIdentity
		}
		return fmt.Errorf("insert profile link: %w", err)
	}
	return nil
}

// GetByIdentity devuelve nil, nil si la identidad no tiene perfil.
func (r *ProfileLinkRepo) GetByIdentity(ctx context.Context, identityRef string) (*entity.ProfileLink, error) {
	var l entity.ProfileLink
	var kind string
	err := r.db.QueryRow(ctx,
		`SELECT identity_ref, profile_kind, profile_id, created_at FROM profile_links WHERE identity_ref = $1`,
		identityRef,
	).Scan(&l.IdentityRef, &kind, &l.ProfileID, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile link: %w", err)
	}
	l.Kind = entity.ProfileKind(kind)
	return &l, nil
}
