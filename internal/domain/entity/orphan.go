package entity

import "time"

// Flujos que pueden dejar una identidad huérfana.
const (
	FlowRegister = "register"
	FlowActivate = "activate"
)

// FlowReconcile reintentos de compensación hechos por el reconciliador.
const FlowReconcile = "reconcile"

// OrphanRecord identidad creada en el proveedor cuya compensación (borrado) falló.
// El reconciliador la reintenta hasta marcarla resuelta.
type OrphanRecord struct {
	ID          string
	IdentityID  string
	Email       string
	ProfileKind ProfileKind
	Flow        string
	Reason      string
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	ResolvedAt  *time.Time
}
