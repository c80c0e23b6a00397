package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PlanType plan comercial asignable a outlets y cadenas.
type PlanType struct {
	ID           string
	Name         string
	Description  string
	Price        decimal.Decimal
	DurationDays int // 0 = sin vencimiento
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EndDate calcula el fin del plan a partir de start. nil si el plan no vence.
func (p *PlanType) EndDate(start time.Time) *time.Time {
	if p.DurationDays <= 0 {
		return nil
	}
	end := start.AddDate(0, 0, p.DurationDays)
	return &end
}
