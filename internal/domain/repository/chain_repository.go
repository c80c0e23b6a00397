package repository

import (
	"context"
	"time"

	"github.com/jhoicas/kds-identity-api/internal/domain/entity"
)

// ChainRepository puerto de persistencia para cadenas de outlets.
type ChainRepository interface {
	Create(ctx context.Context, chain *entity.ChainProfile) error
	GetByID(ctx context.Context, id string) (*entity.ChainProfile, error)
	List(ctx context.Context, limit, offset int) ([]*entity.ChainProfile, error)
	Activate(ctx context.Context, id string, act entity.Activation) error
	UpdateDisplay(ctx context.Context, chain *entity.ChainProfile) error
	IncrementOutlets(ctx context.Context, id string) error
	// RenewPlan mismas reglas que OutletRepository.RenewPlan.
	RenewPlan(ctx context.Context, id string, r entity.PlanRenewal) error
	SetActive(ctx context.Context, id string, active bool, at time.Time) error
}
