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

var _ repository.PlanTypeRepository = (*PlanTypeRepo)(nil)

// PlanTypeRepo planes comerciales. price es NUMERIC y se escanea a decimal.Decimal
// gracias al codec registrado en NewPool.
type PlanTypeRepo struct {
	db Querier
}

// NewPlanTypeRepository acepta el pool o una tx.
func NewPlanTypeRepository(db Querier) *PlanTypeRepo {
	return &PlanTypeRepo{db: db}
}

const planColumns = `id, name, description, price, duration_days, is_active, created_at, updated_at`

// Create persiste un plan. Nombre repetido → ErrDuplicate.
func (r *PlanTypeRepo) Create(ctx context.Context, p *entity.PlanType) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO plan_types (`+planColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Name, p.Description, p.Price, p.DurationDays, p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert plan type: %w", err)
	}
	return nil
}

// GetByID obtiene un plan por ID.
func (r *PlanTypeRepo) GetByID(ctx context.Context, id string) (*entity.PlanType, error) {
	var p entity.PlanType
	err := r.db.QueryRow(ctx, `SELECT `+planColumns+` FROM plan_types WHERE id = $1`, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.DurationDays, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get plan type: %w", err)
	}
	return &p, nil
}

// List planes por nombre; onlyActive filtra los dados de baja.
func (r *PlanTypeRepo) List(ctx context.Context, onlyActive bool) ([]*entity.PlanType, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+planColumns+` FROM plan_types WHERE ($1::boolean = FALSE OR is_active) ORDER BY name`, onlyActive)
	if err != nil {
		return nil, fmt.Errorf("list plan types: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.PlanType, 0)
	for rows.Next() {
		var p entity.PlanType
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.DurationDays, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan plan type: %w", err)
		}
		list = append(list, &p)
	}
	return list, rows.Err()
}
