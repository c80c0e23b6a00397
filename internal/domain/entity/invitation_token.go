package entity

import "time"

// Tipos de licencia (columna key_type de license_keys).
const (
	KeyTypeLicense = "license" // outlet individual
	KeyTypeBranch  = "branch"  // outlet que pertenece a una cadena
	KeyTypeMaster  = "master"  // cadena
)

// InvitationToken licencia de un solo uso que autoriza activar un perfil preexistente.
// Pasa de no consumida a consumida exactamente una vez, en la misma transacción que la activación.
type InvitationToken struct {
	ID         string
	Token      string
	KeyType    string
	TargetKind ProfileKind
	TargetID   string
	Consumed   bool
	ConsumedBy string
	ConsumedAt *time.Time
	ExpiresAt  *time.Time
	CreatedAt  time.Time
}

// TargetKindForKeyType devuelve el tipo de perfil que activa cada tipo de licencia.
func TargetKindForKeyType(keyType string) ProfileKind {
	if keyType == KeyTypeMaster {
		return ProfileChainOutlet
	}
	return ProfileSingleOutlet
}

// Expired informa si la licencia venció respecto a now.
func (t *InvitationToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}
