package identity

import (
	"github.com/jhoicas/kds-identity-api/internal/application/dto"
	"github.com/jhoicas/kds-identity-api/internal/domain/entity"
)

// ToProfileResponse convierte la vista unificada al DTO de salida.
func ToProfileResponse(p *entity.Profile) dto.ProfileResponse {
	out := dto.ProfileResponse{
		Kind:        string(p.Kind),
		ID:          p.ID(),
		IdentityRef: p.IdentityRef(),
		IsActive:    p.IsActive(),
		PlanEndDate: p.PlanEndDate(),
	}
	switch {
	case p.Admin != nil:
		out.Email = p.Admin.Email
		out.Name = p.Admin.FullName
		out.Phone = p.Admin.Phone
		out.CreatedAt = p.Admin.CreatedAt
	case p.Outlet != nil:
		out.Email = p.Outlet.OwnerEmail
		out.Name = p.Outlet.OutletName
		out.Phone = p.Outlet.OwnerPhone
		out.PlanID = p.Outlet.PlanID
		out.CreatedAt = p.Outlet.CreatedAt
		if p.Outlet.ChainID != nil {
			out.ChainID = *p.Outlet.ChainID
		}
	case p.Chain != nil:
		out.Email = p.Chain.MasterAdminEmail
		out.Name = p.Chain.ChainName
		out.Phone = p.Chain.MasterAdminPhone
		out.PlanID = p.Chain.PlanID
		out.CreatedAt = p.Chain.CreatedAt
	}
	return out
}
