package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/jhoicas/kds-identity-api/internal/application/dto"
	"github.com/jhoicas/kds-identity-api/internal/domain"
	"github.com/jhoicas/kds-identity-api/internal/domain/entity"
	"github.com/jhoicas/kds-identity-api/internal/domain/repository"
)

// ActivationOrchestrator activa un outlet o cadena preexistente con su licencia de un solo uso.
type ActivationOrchestrator struct {
	saga
}

// NewActivationOrchestrator construye el orquestador de activación.
func NewActivationOrchestrator(d Deps) *ActivationOrchestrator {
	return &ActivationOrchestrator{saga: newSaga(d)}
}

// activationTarget perfil que la licencia autoriza a activar.
type activationTarget struct {
	profile *entity.Profile
	planID  string
}

// Activate pasos:
//
//	1/4 verificar licencia y perfil destino
//	2/4 crear identidad
//	3/4 activar perfil + vínculo   ┐ una sola transacción local
//	4/4 consumir licencia (CAS)    ┘
func (o *ActivationOrchestrator) Activate(ctx context.Context, in dto.ActivateRequest) (*dto.IdentityProfileResponse, error) {
	tokenValue := strings.TrimSpace(in.InvitationToken)
	if tokenValue == "" {
		return nil, invalid("licencia requerida")
	}
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

	log := o.Log.With().Str("flow", entity.FlowActivate).Str("email", email).
		Str("strategy", o.Config.Strategy).Logger()

	log.Info().Msg("[STEP 1/4] verificando licencia")
	token, target, err := o.loadTarget(ctx, tokenValue)
	if err != nil {
		log.Warn().Err(err).Msg("[STEP 1/4] licencia rechazada")
		o.Metrics.SagaFinished(entity.FlowActivate, OutcomeRejected)
		return nil, err
	}
	kind := target.profile.Kind
	profileID := target.profile.ID()
	log = log.With().Str("profile_kind", string(kind)).Str("profile_id", profileID).Logger()

	plan, err := o.loadPlan(ctx, target.planID)
	if err != nil {
		log.Warn().Err(err).Msg("[STEP 1/4] no se pudo cargar el plan")
		o.Metrics.SagaFinished(entity.FlowActivate, OutcomeRejected)
		return nil, err
	}

	log.Info().Msg("[STEP 2/4] creando identidad")
	identityID, err := o.createIdentity(ctx, entity.FlowActivate, email, in.Credential, activationMetadata(token, target.profile, fullName))
	if err != nil {
		log.Warn().Err(err).Msg("[STEP 2/4] el proveedor rechazó la identidad, licencia intacta")
		o.Metrics.SagaFinished(entity.FlowActivate, OutcomeRejected)
		return nil, err
	}
	log = log.With().Str("identity_id", identityID).Logger()

	now := o.Now()
	act := entity.Activation{IdentityRef: identityID, PlanStartDate: now, ActivatedAt: now}
	if plan != nil {
		act.PlanEndDate = plan.EndDate(now)
	}

	log.Info().Msg("[STEP 3/4] activando perfil y vinculando identidad")
	wctx, cancel := o.profileCtx(ctx)
	err = o.Tx.RunProfile(wctx, func(r repository.ProfileRepos) error {
		var aerr error
		if kind == entity.ProfileChainOutlet {
			aerr = r.Chains.Activate(wctx, profileID, act)
		} else {
			aerr = r.Outlets.Activate(wctx, profileID, act)
		}
		if aerr != nil {
			return aerr
		}
		if err := r.Links.Create(wctx, &entity.ProfileLink{
			IdentityRef: identityID,
			Kind:        kind,
			ProfileID:   profileID,
			CreatedAt:   act.ActivatedAt,
		}); err != nil {
			return err
		}
		log.Info().Msg("[STEP 4/4] consumiendo licencia")
		return r.Tokens.Consume(wctx, token.Token, email, act.ActivatedAt)
	})
	cancel()
	if err != nil {
		if errors.Is(err, domain.ErrTokenAlreadyConsumed) {
			log.Warn().Msg("licencia consumida por otra activación concurrente, compensando")
		} else {
			log.Error().Err(err).Msg("fallo al activar el perfil, licencia sin consumir, compensando")
		}
		landed, outcome := o.settle(identityID, profileID, email, kind, entity.FlowActivate, err)
		if !landed {
			o.Metrics.SagaFinished(entity.FlowActivate, outcome)
			return nil, writeErr(err)
		}
	}

	applyActivation(target.profile, act)
	log.Info().Msg("activación completada")
	o.Metrics.SagaFinished(entity.FlowActivate, OutcomeSuccess)
	return &dto.IdentityProfileResponse{
		IdentityID: identityID,
		Profile:    ToProfileResponse(target.profile),
	}, nil
}

// loadTarget paso 1: la licencia debe existir, no estar consumida ni vencida, y su perfil
// destino debe existir sin identidad vinculada.
func (o *ActivationOrchestrator) loadTarget(ctx context.Context, value string) (*entity.InvitationToken, *activationTarget, error) {
	pctx, cancel := o.profileCtx(ctx)
	defer cancel()

	token, err := o.Tokens.GetByToken(pctx, value)
	if err != nil {
		return nil, nil, readErr(err)
	}
	if token == nil {
		return nil, nil, domain.ErrTokenNotFound
	}
	if token.Consumed {
		return nil, nil, domain.ErrTokenAlreadyConsumed
	}
	if token.Expired(o.Now()) {
		return nil, nil, domain.ErrTokenExpired
	}

	target := &activationTarget{}
	switch entity.TargetKindForKeyType(token.KeyType) {
	case entity.ProfileChainOutlet:
		chain, err := o.Chains.GetByID(pctx, token.TargetID)
		if err != nil {
			return nil, nil, readErr(err)
		}
		if chain == nil {
			return nil, nil, domain.ErrTokenNotFound
		}
		target.profile = &entity.Profile{Kind: entity.ProfileChainOutlet, Chain: chain}
		target.planID = chain.PlanID
	default:
		outlet, err := o.Outlets.GetByID(pctx, token.TargetID)
		if err != nil {
			return nil, nil, readErr(err)
		}
		if outlet == nil {
			return nil, nil, domain.ErrTokenNotFound
		}
		target.profile = &entity.Profile{Kind: entity.ProfileSingleOutlet, Outlet: outlet}
		target.planID = outlet.PlanID
	}
	if target.profile.IdentityRef() != "" {
		return nil, nil, domain.ErrTokenAlreadyConsumed
	}
	return token, target, nil
}

// loadPlan plan del perfil destino. Un plan inexistente deja el perfil sin vencimiento.
func (o *ActivationOrchestrator) loadPlan(ctx context.Context, planID string) (*entity.PlanType, error) {
	if planID == "" {
		return nil, nil
	}
	pctx, cancel := o.profileCtx(ctx)
	defer cancel()
	plan, err := o.Plans.GetByID(pctx, planID)
	if err != nil {
		return nil, readErr(err)
	}
	if plan == nil {
		o.Log.Warn().Str("plan_id", planID).Msg("plan no encontrado, perfil sin fecha de fin")
	}
	return plan, nil
}

func activationMetadata(token *entity.InvitationToken, p *entity.Profile, fullName string) map[string]string {
	meta := map[string]string{
		entity.MetaProfileID:         p.ID(),
		entity.MetaLicenseKey:        token.Token,
		entity.MetaFullName:          fullName,
		entity.MetaRoleKind:          string(p.Kind),
		entity.MetaRegistrationNonce: newNonce(),
	}
	if p.Kind == entity.ProfileChainOutlet {
		meta[entity.MetaChainID] = p.ID()
		meta[entity.MetaUserType] = entity.UserTypeChainOwner
	} else {
		meta[entity.MetaOutletID] = p.ID()
		meta[entity.MetaUserType] = entity.UserTypeOutletOwner
		if p.Outlet.ChainID != nil {
			meta[entity.MetaChainID] = *p.Outlet.ChainID
		}
	}
	return meta
}

func applyActivation(p *entity.Profile, act entity.Activation) {
	ref := act.IdentityRef
	start := act.PlanStartDate
	switch {
	case p.Outlet != nil:
		p.Outlet.IdentityRef = &ref
		p.Outlet.IsActive = true
		p.Outlet.PendingActivation = false
		p.Outlet.PlanStartDate = &start
		p.Outlet.PlanEndDate = act.PlanEndDate
		p.Outlet.UpdatedAt = act.ActivatedAt
	case p.Chain != nil:
		p.Chain.IdentityRef = &ref
		p.Chain.IsActive = true
		p.Chain.PendingActivation = false
		p.Chain.PlanStartDate = &start
		p.Chain.PlanEndDate = act.PlanEndDate
		p.Chain.UpdatedAt = act.ActivatedAt
	}
}
