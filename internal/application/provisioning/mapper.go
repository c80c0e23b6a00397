package provisioning

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/kds-identity-api/internal/application/dto"
	"github.com/jhoicas/kds-identity-api/internal/domain/entity"
)

func toPlanResponse(p *entity.PlanType) dto.PlanResponse {
	return dto.PlanResponse{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		DurationDays: p.DurationDays,
		IsActive:     p.IsActive,
		CreatedAt:    p.CreatedAt,
	}
}

// toOutletResponse token puede ser nil (listados).
func toOutletResponse(o *entity.OutletProfile, token *entity.InvitationToken) dto.OutletResponse {
	out := dto.OutletResponse{
		ID:                o.ID,
		OutletName:        o.OutletName,
		OutletType:        o.OutletType,
		OwnerName:         o.OwnerName,
		OwnerEmail:        o.OwnerEmail,
		OwnerPhone:        o.OwnerPhone,
		Address:           o.Address,
		City:              o.City,
		State:             o.State,
		Pincode:           o.Pincode,
		PlanID:            o.PlanID,
		PlanStartDate:     o.PlanStartDate,
		PlanEndDate:       o.PlanEndDate,
		IsActive:          o.IsActive,
		PendingActivation: o.PendingActivation,
		CreatedBy:         o.CreatedBy,
		CreatedAt:         o.CreatedAt,
		LicenseKeyUsed:    o.IdentityRef != nil,
	}
	if o.ChainID != nil {
		out.ChainID = *o.ChainID
	}
	if token != nil {
		out.LicenseKey = token.Token
		out.LicenseKeyUsed = out.LicenseKeyUsed || token.Consumed
	}
	return out
}

func toChainResponse(c *entity.ChainProfile, token *entity.InvitationToken) dto.ChainResponse {
	out := dto.ChainResponse{
		ID:                c.ID,
		ChainName:         c.ChainName,
		MasterAdminName:   c.MasterAdminName,
		MasterAdminEmail:  c.MasterAdminEmail,
		MasterAdminPhone:  c.MasterAdminPhone,
		TotalOutlets:      c.TotalOutlets,
		PlanID:            c.PlanID,
		PlanEndDate:       c.PlanEndDate,
		IsActive:          c.IsActive,
		PendingActivation: c.PendingActivation,
		CreatedAt:         c.CreatedAt,
		MasterKeyUsed:     c.IdentityRef != nil,
	}
	if token != nil {
		out.MasterLicenseKey = token.Token
		out.MasterKeyUsed = out.MasterKeyUsed || token.Consumed
	}
	return out
}

func toRenewalResponse(kind entity.ProfileKind, id string, rn entity.PlanRenewal, paid decimal.Decimal) dto.RenewalResponse {
	return dto.RenewalResponse{
		TargetKind:    string(kind),
		TargetID:      id,
		PlanID:        rn.PlanID,
		PlanStartDate: rn.PlanStartDate,
		NewEndDate:    rn.PlanEndDate,
		AmountPaid:    paid,
	}
}
