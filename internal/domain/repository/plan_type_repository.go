package repository

import (
	"context"

	"github.com/jhoicas/kds-identity-api/internal/domain/entity"
)

// PlanTypeRepository puerto de persistencia para planes.
type PlanTypeRepository interface {
	Create(ctx context.Context, plan *entity.PlanType) error
	GetByID(ctx context.Context, id string) (*entity.PlanType, error)
	List(ctx context.Context, onlyActive bool) ([]*entity.PlanType, error)
}
