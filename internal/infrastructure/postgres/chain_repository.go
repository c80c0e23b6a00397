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

var _ repository.ChainRepository = (*ChainRepo)(nil)

// ChainRepo implementación del puerto ChainRepository sobre PostgreSQL.
type ChainRepo struct {
	db Querier
}

// NewChainRepository acepta el pool o una tx.
func NewChainRepository(db Querier) *ChainRepo {
	return &ChainRepo{db: db}
}

const chainColumns = `id, identity_ref, chain_name, master_admin_name, master_admin_email, master_admin_phone,
	business_address, business_city, business_state, business_pincode, total_outlets,
	plan_id, plan_start_date, plan_end_date, is_active, pending_activation, created_by, created_at, updated_at`

// Create persiste una cadena.
func (r *ChainRepo) Create(ctx context.Context, c *entity.ChainProfile) error {
	query := `
		INSERT INTO chain_outlets (` + chainColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err := r.db.Exec(ctx, query,
		c.ID, c.IdentityRef, c.ChainName, c.MasterAdminName, c.MasterAdminEmail, c.MasterAdminPhone,
		c.BusinessAddress, c.BusinessCity, c.BusinessState, c.BusinessPincode, c.TotalOutlets,
		nullIfEmpty(c.PlanID), c.PlanStartDate, c.PlanEndDate, c.IsActive, c.PendingActivation, c.CreatedBy, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if uerr := uniqueErr(err); uerr != nil {
			return uerr
		}
		return fmt.Errorf("insert chain: %w", err)
	}
	return nil
}

// GetByID obtiene una cadena por ID.
func (r *ChainRepo) GetByID(ctx context.Context, id string) (*entity.ChainProfile, error) {
	c, err := scanChain(r.db.QueryRow(ctx, `SELECT `+chainColumns+` FROM chain_outlets WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chain: %w", err)
	}
	return c, nil
}

// List cadenas más recientes primero.
func (r *ChainRepo) List(ctx context.Context, limit, offset int) ([]*entity.ChainProfile, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+chainColumns+` FROM chain_outlets ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list chains: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.ChainProfile, 0)
	for rows.Next() {
		c, err := scanChain(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chain: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

// Activate vincula la identidad solo si la cadena no tiene una todavía.
func (r *ChainRepo) Activate(ctx context.Context, id string, act entity.Activation) error {
	query := `
		UPDATE chain_outlets
		SET identity_ref = $2, is_active = TRUE, pending_activation = FALSE,
		    plan_start_date = $3, plan_end_date = $4, updated_at = $5
		WHERE id = $1 AND identity_ref IS NULL`
	tag, err := r.db.Exec(ctx, query, id, act.IdentityRef, act.PlanStartDate, act.PlanEndDate, act.ActivatedAt)
	if err != nil {
		if uerr := uniqueErr(err); uerr != nil {
			return uerr
		}
		return fmt.Errorf("activate chain: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTokenAlreadyConsumed
	}
	return nil
}

// UpdateDisplay actualiza los datos de contacto del administrador maestro.
func (r *ChainRepo) UpdateDisplay(ctx context.Context, c *entity.ChainProfile) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE chain_outlets SET master_admin_name = $2, master_admin_phone = $3, updated_at = $4 WHERE id = $1`,
		c.ID, c.MasterAdminName, c.MasterAdminPhone, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update chain: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// IncrementOutlets suma un outlet a la cadena.
func (r *ChainRepo) IncrementOutlets(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE chain_outlets SET total_outlets = total_outlets + 1, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment chain outlets: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RenewPlan condicionado a que la cadena esté activada y a que plan_end_date no haya cambiado.
func (r *ChainRepo) RenewPlan(ctx context.Context, id string, rn entity.PlanRenewal) error {
	query := `
		UPDATE chain_outlets
		SET plan_id = $2, plan_start_date = $3, plan_end_date = $4, updated_at = $5
		WHERE id = $1 AND pending_activation = FALSE AND plan_end_date IS NOT DISTINCT FROM $6`
	tag, err := r.db.Exec(ctx, query, id, rn.PlanID, rn.PlanStartDate, rn.PlanEndDate, rn.RenewedAt, rn.PreviousEnd)
	if err != nil {
		return fmt.Errorf("renew chain plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: la cadena cambió o sigue pendiente de activación", domain.ErrConflict)
	}
	return nil
}

// SetActive baja lógica (o reactivación) de la cadena.
func (r *ChainRepo) SetActive(ctx context.Context, id string, active bool, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE chain_outlets SET is_active = $2, updated_at = $3 WHERE id = $1`, id, active, at)
	if err != nil {
		return fmt.Errorf("set chain active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanChain(row pgx.Row) (*entity.ChainProfile, error) {
	var c entity.ChainProfile
	var planID *string
	err := row.Scan(
		&c.ID, &c.IdentityRef, &c.ChainName, &c.MasterAdminName, &c.MasterAdminEmail, &c.MasterAdminPhone,
		&c.BusinessAddress, &c.BusinessCity, &c.BusinessState, &c.BusinessPincode, &c.TotalOutlets,
		&planID, &c.PlanStartDate, &c.PlanEndDate, &c.IsActive, &c.PendingActivation, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.PlanID = derefString(planID)
	return &c, nil
}
