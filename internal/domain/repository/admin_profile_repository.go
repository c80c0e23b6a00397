package repository

import (
	"context"

	"github.com/jhoicas/kds-identity-api/internal/domain/entity"
)

// AdminProfileRepository puerto de persistencia para perfiles de administrador (DIP).
type AdminProfileRepository interface {
	Create(ctx context.Context, admin *entity.AdminProfile) error
	GetByID(ctx context.Context, id string) (*entity.AdminProfile, error)
	GetByEmail(ctx context.Context, email string) (*entity.AdminProfile, error)
	UpdateDisplay(ctx context.Context, admin *entity.AdminProfile) error
}
