package ports

import (
	"context"

	"github.com/jhoicas/kds-identity-api/internal/domain/entity"
)

// IdentityStore puerto de salida hacia el proveedor de identidad (Supabase Auth o el almacén local v1).
// La aplicación solo conoce este contrato; cada adaptador traduce sus errores a la taxonomía de domain:
//   - ErrDuplicateIdentity, ErrWeakCredential en Create.
//   - ErrInvalidCredentials en Authenticate y Refresh (igual para email inexistente y contraseña errónea).
//   - ErrUpstreamTimeout cuando vence el contexto; ErrUpstreamRejected para el resto de fallos remotos.
type IdentityStore interface {
	Create(ctx context.Context, email, credential string, metadata map[string]string) (identityID string, err error)
	Authenticate(ctx context.Context, email, credential string) (identityID string, session *entity.Session, err error)
	UpdateMetadata(ctx context.Context, identityID string, metadata map[string]string) error
	// Delete elimina la identidad; se usa solo como compensación. domain.ErrNotFound si no existe.
	Delete(ctx context.Context, identityID string) error
	// FindByEmail devuelve nil, nil si no existe. Permite reintentar un Create con resultado desconocido.
	FindByEmail(ctx context.Context, email string) (*entity.Identity, error)
	Refresh(ctx context.Context, refreshToken string) (*entity.Session, error)
	// Verify valida un access token emitido por el proveedor y devuelve su identidad.
	Verify(ctx context.Context, accessToken string) (*entity.Identity, error)
}
