package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreatePlanRequest alta de un plan.
type CreatePlanRequest struct {
	Name         string          `json:"name" validate:"required,min=2,max=100"`
	Description  string          `json:"description,omitempty"`
	Price        decimal.Decimal `json:"price" validate:"required"`
	DurationDays int             `json:"duration_days" validate:"min=0"`
}

// PlanResponse salida de un plan.
type PlanResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	Price        decimal.Decimal `json:"price"`
	DurationDays int             `json:"duration_days"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
}

// CreateOutletRequest alta de un outlet individual (queda inactivo hasta activar la licencia).
type CreateOutletRequest struct {
	OutletName string `json:"outlet_name" validate:"required,min=2,max=255"`
	OwnerName  string `json:"owner_name" validate:"required,min=2,max=255"`
	OwnerEmail string `json:"owner_email" validate:"required,email"`
	OwnerPhone string `json:"owner_phone,omitempty"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	Pincode    string `json:"pincode,omitempty"`
	PlanID     string `json:"plan_id" validate:"required,uuid"`
	ChainID    string `json:"chain_id,omitempty" validate:"omitempty,uuid"`
}

// CreateChainRequest alta de una cadena.
type CreateChainRequest struct {
	ChainName        string `json:"chain_name" validate:"required,min=2,max=255"`
	MasterAdminName  string `json:"master_admin_name" validate:"required,min=2,max=255"`
	MasterAdminEmail string `json:"master_admin_email" validate:"required,email"`
	MasterAdminPhone string `json:"master_admin_phone,omitempty"`
	BusinessAddress  string `json:"business_address,omitempty"`
	BusinessCity     string `json:"business_city,omitempty"`
	BusinessState    string `json:"business_state,omitempty"`
	BusinessPincode  string `json:"business_pincode,omitempty"`
	PlanID           string `json:"plan_id" validate:"required,uuid"`
}

// OutletResponse salida de un outlet, incluye su licencia para entregarla al dueño.
type OutletResponse struct {
	ID                string     `json:"id"`
	OutletName        string     `json:"outlet_name"`
	OutletType        string     `json:"outlet_type"`
	OwnerName         string     `json:"owner_name"`
	OwnerEmail        string     `json:"owner_email"`
	OwnerPhone        string     `json:"owner_phone,omitempty"`
	Address           string     `json:"address,omitempty"`
	City              string     `json:"city,omitempty"`
	State             string     `json:"state,omitempty"`
	Pincode           string     `json:"pincode,omitempty"`
	LicenseKey        string     `json:"license_key,omitempty"`
	LicenseKeyUsed    bool       `json:"license_key_used"`
	PlanID            string     `json:"plan_id"`
	PlanStartDate     *time.Time `json:"plan_start_date,omitempty"`
	PlanEndDate       *time.Time `json:"plan_end_date,omitempty"`
	ChainID           string     `json:"chain_id,omitempty"`
	IsActive          bool       `json:"is_active"`
	PendingActivation bool       `json:"pending_activation"`
	CreatedBy         string     `json:"created_by,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// ChainResponse salida de una cadena.
type ChainResponse struct {
	ID                string     `json:"id"`
	ChainName         string     `json:"chain_name"`
	MasterAdminName   string     `json:"master_admin_name"`
	MasterAdminEmail  string     `json:"master_admin_email"`
	MasterAdminPhone  string     `json:"master_admin_phone,omitempty"`
	MasterLicenseKey  string     `json:"master_license_key,omitempty"`
	MasterKeyUsed     bool       `json:"master_key_used"`
	TotalOutlets      int        `json:"total_outlets"`
	PlanID            string     `json:"plan_id"`
	PlanEndDate       *time.Time `json:"plan_end_date,omitempty"`
	IsActive          bool       `json:"is_active"`
	PendingActivation bool       `json:"pending_activation"`
	CreatedAt         time.Time  `json:"created_at"`
}

// TokenVerificationResponse resultado de verificar una licencia antes del alta.
type TokenVerificationResponse struct {
	Valid       bool   `json:"valid"`
	AlreadyUsed bool   `json:"already_used"`
	Expired     bool   `json:"expired"`
	KeyType     string `json:"key_type,omitempty"`
	TargetKind  string `json:"target_kind,omitempty"`
	TargetID    string `json:"target_id,omitempty"`
	TargetName  string `json:"target_name,omitempty"`
	OwnerName   string `json:"owner_name,omitempty"`
}

// OutletListResponse listado paginado de outlets.
type OutletListResponse struct {
	Items []OutletResponse `json:"items"`
	Page  PageResponse     `json:"page"`
}

// ChainListResponse listado paginado de cadenas.
type ChainListResponse struct {
	Items []ChainResponse `json:"items"`
	Page  PageResponse    `json:"page"`
}

// RenewPlanRequest renovación del plan de un outlet o cadena ya activados.
type RenewPlanRequest struct {
	PlanID     string          `json:"plan_id" validate:"required,uuid"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
}

// RenewalResponse periodo resultante de una renovación. NewEndDate nulo: el plan no vence.
type RenewalResponse struct {
	TargetKind    string          `json:"target_kind"`
	TargetID      string          `json:"target_id"`
	PlanID        string          `json:"plan_id"`
	PlanStartDate time.Time       `json:"plan_start_date"`
	NewEndDate    *time.Time      `json:"new_end_date"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
}
