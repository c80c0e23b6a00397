package repository

import (
	"context"
	"time"

	"github.com/jhoicas/kds-identity-api/internal/domain/entity"
)

// InvitationTokenRepository puerto de persistencia para licencias (license_keys).
type InvitationTokenRepository interface {
	Create(ctx context.Context, token *entity.InvitationToken) error
	GetByToken(ctx context.Context, token string) (*entity.InvitationToken, error)
	GetByTarget(ctx context.Context, kind entity.ProfileKind, targetID string) (*entity.InvitationToken, error)
	// Consume marca la licencia como usada con compare-and-swap sobre consumed = false.
	// Devuelve domain.ErrTokenAlreadyConsumed si otra petición la consumió antes.
	Consume(ctx context.Context, token, consumedBy string, at time.Time) error
}
