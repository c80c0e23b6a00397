package repository

import (
	"context"

	"github.com/jhoicas/kds-identity-api/internal/domain/entity"
)

// ProfileLinkRepository vinculación global identidad → perfil.
type ProfileLinkRepository interface {
	// Create inserta el vínculo. domain.ErrDuplicateIdentity si la identidad ya tiene perfil.
	Create(ctx context.Context, link *entity.ProfileLink) error
	GetByIdentity(ctx context.Context, identityRef string) (*entity.ProfileLink, error)
}
