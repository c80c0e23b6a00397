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

var _ repository.OutletRepository = (*OutletRepo)(nil)

// OutletRepo implementación del puerto OutletRepository sobre PostgreSQL.
type OutletRepo struct {
	db Querier
}

// NewOutletRepository acepta el pool o una tx.
func NewOutletRepository(db Querier) *OutletRepo {
	return &OutletRepo{db: db}
}

const outletColumns = `id, identity_ref, outlet_name, outlet_type, owner_name, owner_email, owner_phone,
	address, city, state, pincode, plan_id, plan_start_date, plan_end_date, chain_id,
	is_active, pending_activation, created_by, created_at, updated_at`

// Create persiste un outlet (normalmente inactivo y pendiente de activación).
func (r *OutletRepo) Create(ctx context.Context, o *entity.OutletProfile) error {
	query := `
		INSERT INTO single_outlets (` + outletColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`
	_, err := r.db.Exec(ctx, query,
		o.ID, o.IdentityRef, o.OutletName, o.OutletType, o.OwnerName, o.OwnerEmail, o.OwnerPhone,
		o.Address, o.City, o.State, o.Pincode, nullIfEmpty(o.PlanID), o.PlanStartDate, o.PlanEndDate, o.ChainID,
		o.IsActive, o.PendingActivation, o.CreatedBy, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		if uerr := uniqueErr(err); uerr != nil {
			return uerr
		}
		return fmt.Errorf("insert outlet: %w", err)
	}
	return nil
}

// GetByID obtiene un outlet por ID.
func (r *OutletRepo) GetByID(ctx context.Context, id string) (*entity.OutletProfile, error) {
	o, err := scanOutlet(r.db.QueryRow(ctx, `SELECT `+outletColumns+` FROM single_outlets WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get outlet: %w", err)
	}
	return o, nil
}

// List outlets más recientes primero; chainID vacío lista todos.
func (r *OutletRepo) List(ctx context.Context, chainID string, limit, offset int) ([]*entity.OutletProfile, error) {
	query := `
		SELECT ` + outletColumns + ` FROM single_outlets
		WHERE ($1::uuid IS NULL OR chain_id = $1::uuid)
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, nullIfEmpty(chainID), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list outlets: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.OutletProfile, 0)
	for rows.Next() {
		o, err := scanOutlet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan outlet: %w", err)
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// Activate vincula la identidad solo si el outlet no tiene una todavía.
func (r *OutletRepo) Activate(ctx context.Context, id string, act entity.Activation) error {
	query := `
		UPDATE single_outlets
		SET identity_ref = $2, is_active = TRUE, pending_activation = FALSE,
		    plan_start_date = $3, plan_end_date = $4, updated_at = $5
		WHERE id = $1 AND identity_ref IS NULL`
	tag, err := r.db.Exec(ctx, query, id, act.IdentityRef, act.PlanStartDate, act.PlanEndDate, act.ActivatedAt)
	if err != nil {
		if uerr := uniqueErr(err); uerr != nil {
			return uerr
		}
		return fmt.Errorf("activate outlet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTokenAlreadyConsumed
	}
	return nil
}

// UpdateDisplay actualiza los datos de contacto del dueño.
func (r *OutletRepo) UpdateDisplay(ctx context.Context, o *entity.OutletProfile) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE single_outlets SET owner_name = $2, owner_phone = $3, updated_at = $4 WHERE id = $1`,
		o.ID, o.OwnerName, o.OwnerPhone, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update outlet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// RenewPlan condicionado a que el outlet esté activado y a que plan_end_date no haya cambiado.
func (r *OutletRepo) RenewPlan(ctx context.Context, id string, rn entity.PlanRenewal) error {
	query := `
		UPDATE single_outlets
		SET plan_id = $2, plan_start_date = $3, plan_end_date = $4, updated_at = $5
		WHERE id = $1 AND pending_activation = FALSE AND plan_end_date IS NOT DISTINCT FROM $6`
	tag, err := r.db.Exec(ctx, query, id, rn.PlanID, rn.PlanStartDate, rn.PlanEndDate, rn.RenewedAt, rn.PreviousEnd)
	if err != nil {
		return fmt.Errorf("renew outlet plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: el outlet cambió o sigue pendiente de activación", domain.ErrConflict)
	}
	return nil
}

// SetActive baja lógica (o reactivación) del outlet.
func (r *OutletRepo) SetActive(ctx context.Context, id string, active bool, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE single_outlets SET is_active = $2, updated_at = $3 WHERE id = $1`, id, active, at)
	if err != nil {
		return fmt.Errorf("set outlet active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanOutlet(row pgx.Row) (*entity.OutletProfile, error) {
	var o entity.OutletProfile
	var planID *string
	err := row.Scan(
		&o.ID, &o.IdentityRef, &o.OutletName, &o.OutletType, &o.OwnerName, &o.OwnerEmail, &o.OwnerPhone,
		&o.Address, &o.City, &o.State, &o.Pincode, &planID, &o.PlanStartDate, &o.PlanEndDate, &o.ChainID,
		&o.IsActive, &o.PendingActivation, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.PlanID = derefString(planID)
	return &o, nil
}
