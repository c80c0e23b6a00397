// Package provisioning casos de uso de administración: planes, outlets, cadenas y sus licencias.
// Los perfiles se crean inactivos; los activa su dueño con la licencia (ver identity.ActivationOrchestrator).
package provisioning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/kds-identity-api/internal/application/dto"
	"github.com/jhoicas/kds-identity-api/internal/application/identity"
	"github.com/jhoicas/kds-identity-api/internal/domain"
	"github.com/jhoicas/kds-identity-api/internal/domain/entity"
	"github.com/jhoicas/kds-identity-api/internal/domain/repository"
	"github.com/jhoicas/kds-identity-api/pkg/textnorm"
)

// Deps dependencias del caso de uso.
type Deps struct {
	Tx       repository.ProfileTxRunner
	Outlets  repository.OutletRepository
	Chains   repository.ChainRepository
	Tokens   repository.InvitationTokenRepository
	Plans    repository.PlanTypeRepository
	Renderer LicenseSheetRenderer
	Log      zerolog.Logger
	Now      func() time.Time
}

// UseCase operaciones de aprovisionamiento reservadas a administradores.
type UseCase struct {
	Deps
}

// NewUseCase construye el caso de uso.
func NewUseCase(d Deps) *UseCase {
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return &UseCase{Deps: d}
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, msg)
}

// validID los IDs de perfil son UUID; uno mal formado no puede existir.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// ─── planes ───────────────────────────────────────────────────────────────────

// CreatePlan crea un plan activo. Nombre repetido → domain.ErrDuplicate.
func (uc *UseCase) CreatePlan(ctx context.Context, in dto.CreatePlanRequest) (*dto.PlanResponse, error) {
	name := textnorm.DisplayName(in.Name)
	if len(name) < 2 {
		return nil, invalid("el nombre del plan es requerido")
	}
	if in.Price.IsNegative() {
		return nil, invalid("el precio no puede ser negativo")
	}
	if in.DurationDays < 0 {
		return nil, invalid("duration_days no puede ser negativo")
	}
	now := uc.Now()
	plan := &entity.PlanType{
		ID:           uuid.New().String(),
		Name:         name,
		Description:  strings.TrimSpace(in.Description),
		Price:        in.Price,
		DurationDays: in.DurationDays,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.Plans.Create(ctx, plan); err != nil {
		return nil, err
	}
	out := toPlanResponse(plan)
	return &out, nil
}

// ListPlans lista los planes; onlyActive filtra los desactivados.
func (uc *UseCase) ListPlans(ctx context.Context, onlyActive bool) ([]dto.PlanResponse, error) {
	plans, err := uc.Plans.List(ctx, onlyActive)
	if err != nil {
		return nil, err
	}
	out := make([]dto.PlanResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, toPlanResponse(p))
	}
	return out, nil
}

// ─── outlets ──────────────────────────────────────────────────────────────────

// CreateOutlet crea el outlet inactivo y su licencia en una sola transacción.
// Con chain_id la licencia es de tipo branch y se incrementa total_outlets de la cadena.
func (uc *UseCase) CreateOutlet(ctx context.Context, createdBy string, in dto.CreateOutletRequest) (*dto.OutletResponse, error) {
	outletName := textnorm.DisplayName(in.OutletName)
	if len(outletName) < 2 {
		return nil, invalid("outlet_name es requerido")
	}
	ownerName, err := identity.ValidateFullName(in.OwnerName)
	if err != nil {
		return nil, err
	}
	ownerEmail, err := identity.ValidateEmail(in.OwnerEmail)
	if err != nil {
		return nil, err
	}
	if _, err := uc.requirePlan(ctx, in.PlanID); err != nil {
		return nil, err
	}

	now := uc.Now()
	outlet := &entity.OutletProfile{
		ID:                uuid.New().String(),
		OutletName:        outletName,
		OutletType:        entity.OutletTypeSingle,
		OwnerName:         ownerName,
		OwnerEmail:        ownerEmail,
		OwnerPhone:        strings.TrimSpace(in.OwnerPhone),
		Address:           strings.TrimSpace(in.Address),
		City:              strings.TrimSpace(in.City),
		State:             strings.TrimSpace(in.State),
		Pincode:           strings.TrimSpace(in.Pincode),
		PlanID:            in.PlanID,
		IsActive:          false,
		PendingActivation: true,
		CreatedBy:         createdBy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	keyType := entity.KeyTypeLicense
	if chainID := strings.TrimSpace(in.ChainID); chainID != "" {
		if !validID(chainID) {
			return nil, invalid("chain_id debe ser un UUID")
		}
		outlet.ChainID = &chainID
		outlet.OutletType = entity.OutletTypeBranch
		keyType = entity.KeyTypeBranch
	}
	token := newToken(keyType, entity.ProfileSingleOutlet, outlet.ID, now)

	err = uc.Tx.RunProfile(ctx, func(repos repository.ProfileRepos) error {
		if outlet.ChainID != nil {
			chain, err := repos.Chains.GetByID(ctx, *outlet.ChainID)
			if err != nil {
				return err
			}
			if chain == nil {
				return invalid("la cadena indicada no existe")
			}
			if err := repos.Chains.IncrementOutlets(ctx, chain.ID); err != nil {
				return err
			}
		}
		if err := repos.Outlets.Create(ctx, outlet); err != nil {
			return err
		}
		return repos.Tokens.Create(ctx, token)
	})
	if err != nil {
		return nil, err
	}
	uc.Log.Info().Str("outlet_id", outlet.ID).Str("key_type", keyType).Str("created_by", createdBy).
		Msg("outlet creado, pendiente de activación")
	out := toOutletResponse(outlet, token)
	return &out, nil
}

// GetOutlet devuelve el outlet y su licencia. domain.ErrNotFound si no existe.
func (uc *UseCase) GetOutlet(ctx context.Context, id string) (*dto.OutletResponse, error) {
	if !validID(id) {
		return nil, domain.ErrNotFound
	}
	outlet, err := uc.Outlets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if outlet == nil {
		return nil, domain.ErrNotFound
	}
	token, err := uc.Tokens.GetByTarget(ctx, entity.ProfileSingleOutlet, outlet.ID)
	if err != nil {
		return nil, err
	}
	out := toOutletResponse(outlet, token)
	return &out, nil
}

// ListOutlets lista outlets, opcionalmente de una cadena. Las licencias no se incluyen en el listado.
func (uc *UseCase) ListOutlets(ctx context.Context, chainID string, page dto.PageRequest) (*dto.OutletListResponse, error) {
	page.DefaultPage()
	chainID = strings.TrimSpace(chainID)
	if chainID != "" && !validID(chainID) {
		return nil, invalid("chain_id debe ser un UUID")
	}
	list, err := uc.Outlets.List(ctx, chainID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.OutletResponse, 0, len(list))
	for _, o := range list {
		items = append(items, toOutletResponse(o, nil))
	}
	return &dto.OutletListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}, nil
}

// ─── cadenas ──────────────────────────────────────────────────────────────────

// CreateChain crea la cadena inactiva y su licencia maestra en una sola transacción.
func (uc *UseCase) CreateChain(ctx context.Context, createdBy string, in dto.CreateChainRequest) (*dto.ChainResponse, error) {
	chainName := textnorm.DisplayName(in.ChainName)
	if len(chainName) < 2 {
		return nil, invalid("chain_name es requerido")
	}
	adminName, err := identity.ValidateFullName(in.MasterAdminName)
	if err != nil {
		return nil, err
	}
	adminEmail, err := identity.ValidateEmail(in.MasterAdminEmail)
	if err != nil {
		return nil, err
	}
	if _, err := uc.requirePlan(ctx, in.PlanID); err != nil {
		return nil, err
	}

	now := uc.Now()
	chain := &entity.ChainProfile{
		ID:                uuid.New().String(),
		ChainName:         chainName,
		MasterAdminName:   adminName,
		MasterAdminEmail:  adminEmail,
		MasterAdminPhone:  strings.TrimSpace(in.MasterAdminPhone),
		BusinessAddress:   strings.TrimSpace(in.BusinessAddress),
		BusinessCity:      strings.TrimSpace(in.BusinessCity),
		BusinessState:     strings.TrimSpace(in.BusinessState),
		BusinessPincode:   strings.TrimSpace(in.BusinessPincode),
		PlanID:            in.PlanID,
		PendingActivation: true,
		CreatedBy:         createdBy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	token := newToken(entity.KeyTypeMaster, entity.ProfileChainOutlet, chain.ID, now)

	err = uc.Tx.RunProfile(ctx, func(repos repository.ProfileRepos) error {
		if err := repos.Chains.Create(ctx, chain); err != nil {
			return err
		}
		return repos.Tokens.Create(ctx, token)
	})
	if err != nil {
		return nil, err
	}
	uc.Log.Info().Str("chain_id", chain.ID).Str("created_by", createdBy).Msg("cadena creada, pendiente de activación")
	out := toChainResponse(chain, token)
	return &out, nil
}

// GetChain devuelve la cadena y su licencia maestra. domain.ErrNotFound si no existe.
func (uc *UseCase) GetChain(ctx context.Context, id string) (*dto.ChainResponse, error) {
	if !validID(id) {
		return nil, domain.ErrNotFound
	}
	chain, err := uc.Chains.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if chain == nil {
		return nil, domain.ErrNotFound
	}
	token, err := uc.Tokens.GetByTarget(ctx, entity.ProfileChainOutlet, chain.ID)
	if err != nil {
		return nil, err
	}
	out := toChainResponse(chain, token)
	return &out, nil
}

// ListChains lista cadenas sin sus licencias maestras.
func (uc *UseCase) ListChains(ctx context.Context, page dto.PageRequest) (*dto.ChainListResponse, error) {
	page.DefaultPage()
	list, err := uc.Chains.List(ctx, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ChainResponse, 0, len(list))
	for _, c := range list {
		items = append(items, toChainResponse(c, nil))
	}
	return &dto.ChainListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}, nil
}

// ─── renovaciones y bajas ─────────────────────────────────────────────────────

// RenewOutletPlan asigna un nuevo periodo del plan indicado a un outlet ya activado.
// Un plan vigente se extiende desde su fin; uno vencido arranca hoy.
func (uc *UseCase) RenewOutletPlan(ctx context.Context, id string, in dto.RenewPlanRequest) (*dto.RenewalResponse, error) {
	if !validID(id) {
		return nil, domain.ErrNotFound
	}
	plan, err := uc.renewalPlan(ctx, in)
	if err != nil {
		return nil, err
	}
	outlet, err := uc.Outlets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if outlet == nil {
		return nil, domain.ErrNotFound
	}
	if outlet.PendingActivation {
		return nil, fmt.Errorf("%w: el outlet sigue pendiente de activación", domain.ErrConflict)
	}
	rn := uc.newRenewal(plan, outlet.PlanEndDate)
	if err := uc.Outlets.RenewPlan(ctx, id, rn); err != nil {
		return nil, err
	}
	uc.Log.Info().Str("outlet_id", id).Str("plan_id", plan.ID).Str("amount_paid", in.AmountPaid.String()).
		Time("plan_start_date", rn.PlanStartDate).Msg("plan de outlet renovado")
	out := toRenewalResponse(entity.ProfileSingleOutlet, id, rn, in.AmountPaid)
	return &out, nil
}

// RenewChainPlan igual que RenewOutletPlan para una cadena.
func (uc *UseCase) RenewChainPlan(ctx context.Context, id string, in dto.RenewPlanRequest) (*dto.RenewalResponse, error) {
	if !validID(id) {
		return nil, domain.ErrNotFound
	}
	plan, err := uc.renewalPlan(ctx, in)
	if err != nil {
		return nil, err
	}
	chain, err := uc.Chains.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if chain == nil {
		return nil, domain.ErrNotFound
	}
	if chain.PendingActivation {
		return nil, fmt.Errorf("%w: la cadena sigue pendiente de activación", domain.ErrConflict)
	}
	rn := uc.newRenewal(plan, chain.PlanEndDate)
	if err := uc.Chains.RenewPlan(ctx, id, rn); err != nil {
		return nil, err
	}
	uc.Log.Info().Str("chain_id", id).Str("plan_id", plan.ID).Str("amount_paid", in.AmountPaid.String()).
		Time("plan_start_date", rn.PlanStartDate).Msg("plan de cadena renovado")
	out := toRenewalResponse(entity.ProfileChainOutlet, id, rn, in.AmountPaid)
	return &out, nil
}

// DeactivateOutlet baja lógica: el outlet conserva sus datos y su dueño deja de poder iniciar sesión.
func (uc *UseCase) DeactivateOutlet(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	if err := uc.Outlets.SetActive(ctx, id, false, uc.Now()); err != nil {
		return err
	}
	uc.Log.Info().Str("outlet_id", id).Msg("outlet desactivado")
	return nil
}

// DeactivateChain baja lógica de la cadena.
func (uc *UseCase) DeactivateChain(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrNotFound
	}
	if err := uc.Chains.SetActive(ctx, id, false, uc.Now()); err != nil {
		return err
	}
	uc.Log.Info().Str("chain_id", id).Msg("cadena desactivada")
	return nil
}

// ─── licencias ────────────────────────────────────────────────────────────────

// VerifyToken informa si la licencia sirve para activar su perfil. Nunca devuelve error
// para una licencia inexistente: el resultado es valid=false.
func (uc *UseCase) VerifyToken(ctx context.Context, value string) (*dto.TokenVerificationResponse, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, invalid("license_key requerido")
	}
	tok, err := uc.Tokens.GetByToken(ctx, value)
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return &dto.TokenVerificationResponse{Valid: false}, nil
	}
	out := &dto.TokenVerificationResponse{
		AlreadyUsed: tok.Consumed,
		Expired:     tok.Expired(uc.Now()),
		KeyType:     tok.KeyType,
		TargetKind:  string(tok.TargetKind),
		TargetID:    tok.TargetID,
	}
	switch tok.TargetKind {
	case entity.ProfileChainOutlet:
		chain, err := uc.Chains.GetByID(ctx, tok.TargetID)
		if err != nil {
			return nil, err
		}
		if chain != nil {
			out.TargetName, out.OwnerName = chain.ChainName, chain.MasterAdminName
			out.AlreadyUsed = out.AlreadyUsed || chain.IdentityRef != nil
		}
	default:
		outlet, err := uc.Outlets.GetByID(ctx, tok.TargetID)
		if err != nil {
			return nil, err
		}
		if outlet != nil {
			out.TargetName, out.OwnerName = outlet.OutletName, outlet.OwnerName
			out.AlreadyUsed = out.AlreadyUsed || outlet.IdentityRef != nil
		}
	}
	out.Valid = out.TargetName != "" && !out.AlreadyUsed && !out.Expired
	return out, nil
}

// LicenseSheetPDF genera la hoja imprimible con los datos del outlet y su licencia.
func (uc *UseCase) LicenseSheetPDF(ctx context.Context, outletID string) ([]byte, error) {
	if uc.Renderer == nil {
		return nil, fmt.Errorf("provisioning: generador de PDF no configurado")
	}
	if !validID(outletID) {
		return nil, domain.ErrNotFound
	}
	outlet, err := uc.Outlets.GetByID(ctx, outletID)
	if err != nil {
		return nil, err
	}
	if outlet == nil {
		return nil, domain.ErrNotFound
	}
	token, err := uc.Tokens.GetByTarget(ctx, entity.ProfileSingleOutlet, outlet.ID)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, fmt.Errorf("%w: el outlet no tiene licencia", domain.ErrConflict)
	}

	sheet := LicenseSheet{
		OutletName: outlet.OutletName,
		OwnerName:  outlet.OwnerName,
		OwnerEmail: outlet.OwnerEmail,
		OwnerPhone: outlet.OwnerPhone,
		Address:    outlet.Address,
		City:       outlet.City,
		State:      outlet.State,
		LicenseKey: token.Token,
		KeyType:    token.KeyType,
		IssuedAt:   token.CreatedAt,
	}
	if plan, err := uc.Plans.GetByID(ctx, outlet.PlanID); err == nil && plan != nil {
		sheet.PlanName = plan.Name
	}
	if outlet.ChainID != nil {
		if chain, err := uc.Chains.GetByID(ctx, *outlet.ChainID); err == nil && chain != nil {
			sheet.ChainName = chain.ChainName
		}
	}
	return uc.Renderer.RenderLicenseSheet(ctx, sheet)
}

// ─── helpers ──────────────────────────────────────────────────────────────────

func (uc *UseCase) requirePlan(ctx context.Context, planID string) (*entity.PlanType, error) {
	if _, err := uuid.Parse(planID); err != nil {
		return nil, invalid("plan_id debe ser un UUID")
	}
	plan, err := uc.Plans.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil || !plan.IsActive {
		return nil, invalid("el plan indicado no existe o está inactivo")
	}
	return plan, nil
}

func (uc *UseCase) renewalPlan(ctx context.Context, in dto.RenewPlanRequest) (*entity.PlanType, error) {
	if in.AmountPaid.IsNegative() {
		return nil, invalid("amount_paid no puede ser negativo")
	}
	return uc.requirePlan(ctx, in.PlanID)
}

func (uc *UseCase) newRenewal(plan *entity.PlanType, currentEnd *time.Time) entity.PlanRenewal {
	now := uc.Now()
	start, end := entity.RenewalWindow(plan, currentEnd, now)
	return entity.PlanRenewal{
		PlanID:        plan.ID,
		PlanStartDate: start,
		PlanEndDate:   end,
		PreviousEnd:   currentEnd,
		RenewedAt:     now,
	}
}

func newToken(keyType string, kind entity.ProfileKind, targetID string, now time.Time) *entity.InvitationToken {
	return &entity.InvitationToken{
		ID:         uuid.New().String(),
		Token:      uuid.New().String(),
		KeyType:    keyType,
		TargetKind: kind,
		TargetID:   targetID,
		CreatedAt:  now,
	}
}
