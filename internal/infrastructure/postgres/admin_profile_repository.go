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

var _ repository.AdminProfileRepository = (*AdminProfileRepo)(nil)

// AdminProfileRepo implementación del puerto AdminProfileRepository sobre PostgreSQL.
type AdminProfileRepo struct {
	db Querier
}

// NewAdminProfileRepository acepta el pool o una tx.
func NewAdminProfileRepository(db Querier) *AdminProfileRepo {
	return &AdminProfileRepo{db: db}
}

const adminColumns = `id, identity_ref, email, full_name, phone, created_at, updated_at`

// Create persiste un nuevo administrador.
func (r *AdminProfileRepo) Create(ctx context.Context, a *entity.AdminProfile) error {
	query := `
		INSERT INTO admin_users (` + adminColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, query,
		a.ID, a.IdentityRef, a.Email, a.FullName, a.Phone, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if uerr := uniqueErr(err); uerr != nil {
			return uerr
		}
		return fmt.Errorf("insert admin user: %w", err)
	}
	return nil
}

// GetByID obtiene un administrador por ID.
func (r *AdminProfileRepo) GetByID(ctx context.Context, id string) (*entity.AdminProfile, error) {
	return r.getOne(ctx, `SELECT `+adminColumns+` FROM admin_users WHERE id = $1`, id)
}

// GetByEmail obtiene un administrador por email (sin distinguir mayúsculas).
func (r *AdminProfileRepo) GetByEmail(ctx context.Context, email string) (*entity.AdminProfile, error) {
	return r.getOne(ctx, `SELECT `+adminColumns+` FROM admin_users WHERE lower(email) = lower($1)`, email)
}

// UpdateDisplay actualiza nombre y teléfono.
func (r *AdminProfileRepo) UpdateDisplay(ctx context.Context, a *entity.AdminProfile) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE admin_users SET full_name = $2, phone = $3, updated_at = $4 WHERE id = $1`,
		a.ID, a.FullName, a.Phone, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update admin user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AdminProfileRepo) getOne(ctx context.Context, query string, arg any) (*entity.AdminProfile, error) {
	var a entity.AdminProfile
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&a.ID, &a.IdentityRef, &a.Email, &a.FullName, &a.Phone, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get admin user: %w", err)
	}
	return &a, nil
}
