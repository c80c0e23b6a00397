package entity

import "time"

// ProfileKind tipo de registro de negocio vinculado a una identidad.
type ProfileKind string

const (
	ProfileAdmin        ProfileKind = "admin"
	ProfileSingleOutlet ProfileKind = "single_outlet"
	ProfileChainOutlet  ProfileKind = "chain_outlet"
)

// Valid informa si el tipo es uno de los soportados.
func (k ProfileKind) Valid() bool {
	switch k {
	case ProfileAdmin, ProfileSingleOutlet, ProfileChainOutlet:
		return true
	}
	return false
}

// ProfileLink fila de profile_links: la única vinculación identidad → perfil.
// identity_ref es clave primaria, así que una identidad referencia a lo sumo un perfil.
type ProfileLink struct {
	IdentityRef string
	Kind        ProfileKind
	ProfileID   string
	CreatedAt   time.Time
}

// Profile vista unificada de los tres tipos de perfil. Exactamente uno de los punteros es no nil.
type Profile struct {
	Kind   ProfileKind
	Admin  *AdminProfile
	Outlet *OutletProfile
	Chain  *ChainProfile
}

// ID devuelve el identificador local del perfil.
func (p *Profile) ID() string {
	switch {
	case p.Admin != nil:
		return p.Admin.ID
	case p.Outlet != nil:
		return p.Outlet.ID
	case p.Chain != nil:
		return p.Chain.ID
	}
	return ""
}

// IdentityRef devuelve la identidad vinculada o "" si el perfil aún no fue activado.
func (p *Profile) IdentityRef() string {
	var ref *string
	switch {
	case p.Admin != nil:
		ref = p.Admin.IdentityRef
	case p.Outlet != nil:
		ref = p.Outlet.IdentityRef
	case p.Chain != nil:
		ref = p.Chain.IdentityRef
	}
	if ref == nil {
		return ""
	}
	return *ref
}

// IsActive los administradores siempre están activos; outlets y cadenas según su flag.
func (p *Profile) IsActive() bool {
	switch {
	case p.Admin != nil:
		return true
	case p.Outlet != nil:
		return p.Outlet.IsActive
	case p.Chain != nil:
		return p.Chain.IsActive
	}
	return false
}

// PlanEndDate fin del plan contratado (nil = sin vencimiento).
func (p *Profile) PlanEndDate() *time.Time {
	switch {
	case p.Outlet != nil:
		return p.Outlet.PlanEndDate
	case p.Chain != nil:
		return p.Chain.PlanEndDate
	}
	return nil
}

// AdminProfile administrador de la plataforma (tabla admin_users).
type AdminProfile struct {
	ID          string
	IdentityRef *string
	Email       string
	FullName    string
	Phone       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
