package repository

import (
	"context"
	"time"

	"github.com/jhoicas/kds-identity-api/internal/domain/entity"
)

// OutletRepository puerto de persistencia para outlets individuales.
type OutletRepository interface {
	Create(ctx context.Context, outlet *entity.OutletProfile) error
	GetByID(ctx context.Context, id string) (*entity.OutletProfile, error)
	List(ctx context.Context, chainID string, limit, offset int) ([]*entity.OutletProfile, error)
	// Activate vincula la identidad y marca el outlet activo. Solo afecta outlets sin identity_ref;
	// devuelve domain.ErrTokenAlreadyConsumed si el outlet ya estaba vinculado.
	Activate(ctx context.Context, id string, act entity.Activation) error
	UpdateDisplay(ctx context.Context, outlet *entity.OutletProfile) error
	// RenewPlan reemplaza el periodo del plan. domain.ErrConflict si el outlet sigue pendiente
	// de activación o su fin de plan cambió desde r.PreviousEnd.
	RenewPlan(ctx context.Context, id string, r entity.PlanRenewal) error
	// SetActive cambia is_active. domain.ErrNotFound si no existe.
	SetActive(ctx context.Context, id string, active bool, at time.Time) error
}
