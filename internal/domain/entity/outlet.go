package entity

import "time"

// Tipos de outlet.
const (
	OutletTypeSingle = "single"
	OutletTypeBranch = "branch"
)

// OutletProfile local individual (tabla single_outlets). Se crea inactivo por un administrador
// y lo activa su dueño con la licencia.
type OutletProfile struct {
	ID                string
	IdentityRef       *string
	OutletName        string
	OutletType        string
	OwnerName         string
	OwnerEmail        string
	OwnerPhone        string
	Address           string
	City              string
	State             string
	Pincode           string
	PlanID            string
	PlanStartDate     *time.Time
	PlanEndDate       *time.Time
	ChainID           *string
	IsActive          bool
	PendingActivation bool
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ChainProfile cadena de outlets (tabla chain_outlets), activada con la licencia maestra.
type ChainProfile struct {
	ID                string
	IdentityRef       *string
	ChainName         string
	MasterAdminName   string
	MasterAdminEmail  string
	MasterAdminPhone  string
	BusinessAddress   string
	BusinessCity      string
	BusinessState     string
	BusinessPincode   string
	TotalOutlets      int
	PlanID            string
	PlanStartDate     *time.Time
	PlanEndDate       *time.Time
	IsActive          bool
	PendingActivation bool
	CreatedBy         string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Activation datos que se escriben al activar un outlet o cadena.
type Activation struct {
	IdentityRef   string
	PlanStartDate time.Time
	PlanEndDate   *time.Time
	ActivatedAt   time.Time
}

// PlanRenewal nuevo periodo de plan. PreviousEnd es el fin leído al calcularlo; la
// escritura solo se aplica si no cambió entretanto.
type PlanRenewal struct {
	PlanID        string
	PlanStartDate time.Time
	PlanEndDate   *time.Time
	PreviousEnd   *time.Time
	RenewedAt     time.Time
}

// RenewalWindow calcula el periodo de una renovación: si el plan vigente aún no vence, el
// nuevo empieza al terminar el actual; si ya venció empieza en now.
func RenewalWindow(plan *PlanType, currentEnd *time.Time, now time.Time) (start time.Time, end *time.Time) {
	start = now
	if currentEnd != nil && currentEnd.After(now) {
		start = *currentEnd
	}
	return start, plan.EndDate(start)
}
