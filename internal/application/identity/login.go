package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/jhoicas/kds-identity-api/internal/application/dto"
	"github.com/jhoicas/kds-identity-api/internal/domain"
	"github.com/jhoicas/kds-identity-api/internal/domain/entity"
)

// SessionOrchestrator login, renovación de sesión y consulta/edición del perfil propio.
type SessionOrchestrator struct {
	saga
}

// NewSessionOrchestrator construye el orquestador de sesiones.
func NewSessionOrchestrator(d Deps) *SessionOrchestrator {
	return &SessionOrchestrator{saga: newSaga(d)}
}

// Principal identidad autenticada por bearer token con su perfil resuelto.
type Principal struct {
	IdentityID string
	Email      string
	Profile    *entity.Profile
}

// IsAdmin informa si el perfil vinculado es de administrador.
func (p *Principal) IsAdmin() bool {
	return p.Profile != nil && p.Profile.Kind == entity.ProfileAdmin
}

// Login autentica y resuelve el perfil vinculado. Sin perfil → ErrProfileNotFound.
func (o *SessionOrchestrator) Login(ctx context.Context, in dto.LoginRequest) (*dto.LoginResponse, error) {
	email, err := ValidateEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if in.Credential == "" {
		return nil, invalid("contraseña requerida")
	}

	actx, cancel := o.identityCtx(ctx)
	identityID, session, err := o.Store.Authenticate(actx, email, in.Credential)
	cancel()
	if err != nil {
		return nil, identityErr(err)
	}

	profile, err := o.resolve(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if err := o.checkUsable(profile); err != nil {
		o.Log.Info().Err(err).Str("identity_id", identityID).Str("profile_id", profile.ID()).Msg("login denegado")
		return nil, err
	}

	o.Log.Info().Str("identity_id", identityID).Str("profile_kind", string(profile.Kind)).Msg("login correcto")
	return &dto.LoginResponse{
		IdentityID:   identityID,
		Profile:      ToProfileResponse(profile),
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		TokenType:    session.TokenType,
		ExpiresAt:    session.ExpiresAt,
	}, nil
}

// Refresh emite una sesión nueva a partir del refresh token.
func (o *SessionOrchestrator) Refresh(ctx context.Context, in dto.RefreshRequest) (*dto.SessionResponse, error) {
	token := strings.TrimSpace(in.RefreshToken)
	if token == "" {
		return nil, invalid("refresh_token requerido")
	}
	rctx, cancel := o.identityCtx(ctx)
	defer cancel()
	session, err := o.Store.Refresh(rctx, token)
	if err != nil {
		return nil, identityErr(err)
	}
	return &dto.SessionResponse{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		TokenType:    session.TokenType,
		ExpiresAt:    session.ExpiresAt,
	}, nil
}

// Authorize valida el access token y resuelve su perfil. Lo usa el middleware HTTP.
func (o *SessionOrchestrator) Authorize(ctx context.Context, accessToken string) (*Principal, error) {
	vctx, cancel := o.identityCtx(ctx)
	ident, err := o.Store.Verify(vctx, accessToken)
	cancel()
	if err != nil {
		return nil, identityErr(err)
	}
	profile, err := o.resolve(ctx, ident.ID)
	if err != nil {
		return nil, err
	}
	return &Principal{IdentityID: ident.ID, Email: ident.Email, Profile: profile}, nil
}

// Me perfil de la identidad autenticada, activo o no.
func (o *SessionOrchestrator) Me(ctx context.Context, identityID string) (*dto.ProfileResponse, error) {
	profile, err := o.resolve(ctx, identityID)
	if err != nil {
		return nil, err
	}
	out := ToProfileResponse(profile)
	return &out, nil
}

// UpdateProfile cambia los datos descriptivos en el perfil local y después en la metadata
// de la identidad. El fallo de la metadata se registra pero no revierte el perfil.
func (o *SessionOrchestrator) UpdateProfile(ctx context.Context, identityID string, in dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	var fullName, phone *string
	if in.FullName != nil {
		n, err := ValidateFullName(*in.FullName)
		if err != nil {
			return nil, err
		}
		fullName = &n
	}
	if in.Phone != nil {
		p := normalizePhone(*in.Phone)
		phone = &p
	}

	profile, err := o.resolve(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if fullName == nil && phone == nil {
		out := ToProfileResponse(profile)
		return &out, nil
	}

	now := o.Now()
	wctx, cancel := o.profileCtx(ctx)
	switch {
	case profile.Admin != nil:
		if fullName != nil {
			profile.Admin.FullName = *fullName
		}
		if phone != nil {
			profile.Admin.Phone = *phone
		}
		profile.Admin.UpdatedAt = now
		err = o.Admins.UpdateDisplay(wctx, profile.Admin)
	case profile.Outlet != nil:
		if fullName != nil {
			profile.Outlet.OwnerName = *fullName
		}
		if phone != nil {
			profile.Outlet.OwnerPhone = *phone
		}
		profile.Outlet.UpdatedAt = now
		err = o.Outlets.UpdateDisplay(wctx, profile.Outlet)
	case profile.Chain != nil:
		if fullName != nil {
			profile.Chain.MasterAdminName = *fullName
		}
		if phone != nil {
			profile.Chain.MasterAdminPhone = *phone
		}
		profile.Chain.UpdatedAt = now
		err = o.Chains.UpdateDisplay(wctx, profile.Chain)
	}
	cancel()
	if err != nil {
		return nil, writeErr(err)
	}

	meta := map[string]string{}
	if fullName != nil {
		meta[entity.MetaFullName] = *fullName
	}
	if phone != nil {
		meta[entity.MetaPhone] = *phone
	}
	mctx, mcancel := o.identityCtx(ctx)
	if err := o.Store.UpdateMetadata(mctx, identityID, meta); err != nil {
		o.Log.Warn().Err(err).Str("identity_id", identityID).Msg("metadata de identidad desactualizada")
	}
	mcancel()

	out := ToProfileResponse(profile)
	return &out, nil
}

// resolve busca el perfil vinculado vía profile_links.
func (o *SessionOrchestrator) resolve(ctx context.Context, identityID string) (*entity.Profile, error) {
	pctx, cancel := o.profileCtx(ctx)
	defer cancel()

	link, err := o.Links.GetByIdentity(pctx, identityID)
	if err != nil {
		return nil, readErr(err)
	}
	if link == nil {
		o.Log.Warn().Str("identity_id", identityID).Msg("identidad sin perfil vinculado (posible huérfano)")
		return nil, domain.ErrProfileNotFound
	}

	p := &entity.Profile{Kind: link.Kind}
	switch link.Kind {
	case entity.ProfileAdmin:
		p.Admin, err = o.Admins.GetByID(pctx, link.ProfileID)
		if err == nil && p.Admin == nil {
			err = domain.ErrProfileNotFound
		}
	case entity.ProfileSingleOutlet:
		p.Outlet, err = o.Outlets.GetByID(pctx, link.ProfileID)
		if err == nil && p.Outlet == nil {
			err = domain.ErrProfileNotFound
		}
	case entity.ProfileChainOutlet:
		p.Chain, err = o.Chains.GetByID(pctx, link.ProfileID)
		if err == nil && p.Chain == nil {
			err = domain.ErrProfileNotFound
		}
	default:
		err = domain.ErrProfileNotFound
	}
	switch {
	case errors.Is(err, domain.ErrProfileNotFound):
		o.Log.Error().Str("identity_id", identityID).Str("profile_id", link.ProfileID).
			Str("profile_kind", string(link.Kind)).Msg("vínculo apunta a un perfil inexistente")
		return nil, err
	case err != nil:
		return nil, readErr(err)
	}
	return p, nil
}

func (o *SessionOrchestrator) checkUsable(p *entity.Profile) error {
	if !p.IsActive() {
		return domain.ErrProfileInactive
	}
	if end := p.PlanEndDate(); end != nil && end.Before(o.Now()) {
		return domain.ErrPlanExpired
	}
	return nil
}
