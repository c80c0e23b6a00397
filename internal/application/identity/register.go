package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/kds-identity-api/internal/application/dto"
	"github.com/jhoicas/kds-identity-api/internal/domain"
	"github.com/jhoicas/kds-identity-api/internal/domain/entity"
	"github.com/jhoicas/kds-identity-api/internal/domain/repository"
)

// RegistrationOrchestrator alta de administradores: identidad en el proveedor + fila en admin_users.
type RegistrationOrchestrator struct {
	saga
}

// NewRegistrationOrchestrator construye el orquestador de registro.
func NewRegistrationOrchestrator(d Deps) *RegistrationOrchestrator {
	return &RegistrationOrchestrator{saga: newSaga(d)}
}

// Register crea la identidad y el perfil admin vinculado. Éxito solo con ambos escritos.
func (o *RegistrationOrchestrator) Register(ctx context.Context, in dto.RegisterRequest) (*dto.IdentityProfileResponse, error) {
	email, err := ValidateEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := ValidateCredential(in.Credential); err != nil {
		return nil, err
	}
	fullName, err := ValidateFullName(in.DisplayAttributes.FullName)
	if err != nil {
		return nil, err
	}
	phone := normalizePhone(in.DisplayAttributes.Phone)

	log := o.Log.With().Str("flow", entity.FlowRegister).Str("email", email).
		Str("profile_kind", string(entity.ProfileAdmin)).Str("strategy", o.Config.Strategy).Logger()

	// Comprobación previa, solo orientativa: la unicidad real la imponen los almacenes.
	pctx, cancel := o.profileCtx(ctx)
	existing, err := o.Admins.GetByEmail(pctx, email)
	cancel()
	if err != nil {
		o.Metrics.SagaFinished(entity.FlowRegister, OutcomeRejected)
		return nil, readErr(err)
	}
	if existing != nil {
		log.Info().Msg("registro rechazado: email ya registrado")
		o.Metrics.SagaFinished(entity.FlowRegister, OutcomeRejected)
		return nil, fmt.Errorf("%w: %w", domain.ErrIdentityCreationFailed, domain.ErrDuplicateIdentity)
	}

	meta := map[string]string{
		entity.MetaFullName:          fullName,
		entity.MetaPhone:             phone,
		entity.MetaUserType:          entity.UserTypeAdmin,
		entity.MetaRoleKind:          string(entity.ProfileAdmin),
		entity.MetaRegistrationNonce: newNonce(),
	}
	identityID, err := o.createIdentity(ctx, entity.FlowRegister, email, in.Credential, meta)
	if err != nil {
		log.Warn().Err(err).Msg("registro rechazado por el proveedor de identidad")
		o.Metrics.SagaFinished(entity.FlowRegister, OutcomeRejected)
		return nil, err
	}
	log = log.With().Str("identity_id", identityID).Logger()
	log.Info().Msg("identidad creada, escribiendo perfil")

	now := o.Now()
	ref := identityID
	admin := &entity.AdminProfile{
		ID:          uuid.NewString(),
		IdentityRef: &ref,
		Email:       email,
		FullName:    fullName,
		Phone:       phone,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	wctx, wcancel := o.profileCtx(ctx)
	err = o.Tx.RunProfile(wctx, func(r repository.ProfileRepos) error {
		if err := r.Admins.Create(wctx, admin); err != nil {
			return err
		}
		return r.Links.Create(wctx, &entity.ProfileLink{
			IdentityRef: identityID,
			Kind:        entity.ProfileAdmin,
			ProfileID:   admin.ID,
			CreatedAt:   now,
		})
	})
	wcancel()
	if err != nil {
		log.Error().Err(err).Msg("fallo al escribir el perfil")
		landed, outcome := o.settle(identityID, admin.ID, email, entity.ProfileAdmin, entity.FlowRegister, err)
		if !landed {
			o.Metrics.SagaFinished(entity.FlowRegister, outcome)
			return nil, writeErr(err)
		}
	}

	log.Info().Str("profile_id", admin.ID).Msg("registro completado")
	o.Metrics.SagaFinished(entity.FlowRegister, OutcomeSuccess)
	return &dto.IdentityProfileResponse{
		IdentityID: identityID,
		Profile:    ToProfileResponse(&entity.Profile{Kind: entity.ProfileAdmin, Admin: admin}),
	}, nil
}
