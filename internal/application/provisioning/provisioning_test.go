package provisioning_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/kds-identity-api/internal/application/dto"
	"github.com/jhoicas/kds-identity-api/internal/application/provisioning"
	"github.com/jhoicas/kds-identity-api/internal/domain"
	"github.com/jhoicas/kds-identity-api/internal/domain/entity"
	"github.com/jhoicas/kds-identity-api/internal/testutil"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const planID = "5f0c7a9e-1d2b-4c3a-9e8f-7a6b5c4d3e2f"

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeRenderer struct {
	got provisioning.LicenseSheet
}

func (r *fakeRenderer) RenderLicenseSheet(_ context.Context, sheet provisioning.LicenseSheet) ([]byte, error) {
	r.got = sheet
	return []byte("%PDF-fake"), nil
}

func newUseCase(t *testing.T) (*provisioning.UseCase, *testutil.MemStore, *fakeRenderer) {
	t.Helper()
	db := testutil.NewMemStore()
	db.SeedPlan(entity.PlanType{ID: planID, Name: "Mensual", Price: decimal.NewFromInt(49900), DurationDays: 30, IsActive: true})
	repos := db.Repos()
	renderer := &fakeRenderer{}
	uc := provisioning.NewUseCase(provisioning.Deps{
		Tx:       db,
		Outlets:  repos.Outlets,
		Chains:   repos.Chains,
		Tokens:   repos.Tokens,
		Plans:    db.Plans(),
		Renderer: renderer,
		Log:      zerolog.Nop(),
		Now:      func() time.Time { return testNow },
	})
	return uc, db, renderer
}

func outletRequest() dto.CreateOutletRequest {
	return dto.CreateOutletRequest{
		OutletName: "Cocina  Centro",
		OwnerName:  "Olga Dueña",
		OwnerEmail: " Owner@Example.com ",
		City:       "Medellín",
		PlanID:     planID,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Planes
// ──────────────────────────────────────────────────────────────────────────────

func TestCreatePlan(t *testing.T) {
	uc, _, _ := newUseCase(t)
	ctx := context.Background()

	plan, err := uc.CreatePlan(ctx, dto.CreatePlanRequest{Name: "Anual", Price: decimal.RequireFromString("499000.50"), DurationDays: 365})
	require.NoError(t, err)
	assert.True(t, plan.IsActive)
	assert.Equal(t, "499000.5", plan.Price.String())

	_, err = uc.CreatePlan(ctx, dto.CreatePlanRequest{Name: "anual", Price: decimal.Zero})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = uc.CreatePlan(ctx, dto.CreatePlanRequest{Name: "Gratis", Price: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	plans, err := uc.ListPlans(ctx, true)
	require.NoError(t, err)
	assert.Len(t, plans, 2)
}

// ──────────────────────────────────────────────────────────────────────────────
// Outlets y cadenas
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateOutlet_IssuesLicense(t *testing.T) {
	uc, db, _ := newUseCase(t)
	ctx := context.Background()

	out, err := uc.CreateOutlet(ctx, "admin-1", outletRequest())
	require.NoError(t, err)
	assert.Equal(t, "Cocina Centro", out.OutletName)
	assert.Equal(t, "owner@example.com", out.OwnerEmail)
	assert.False(t, out.IsActive)
	assert.True(t, out.PendingActivation)
	assert.Equal(t, entity.OutletTypeSingle, out.OutletType)
	require.NotEmpty(t, out.LicenseKey)

	tok, ok := db.Token(out.LicenseKey)
	require.True(t, ok)
	assert.Equal(t, entity.KeyTypeLicense, tok.KeyType)
	assert.Equal(t, entity.ProfileSingleOutlet, tok.TargetKind)
	assert.Equal(t, out.ID, tok.TargetID)
	assert.False(t, tok.Consumed)

	got, err := uc.GetOutlet(ctx, out.ID)
	require.NoError(t, err)
	assert.Equal(t, out.LicenseKey, got.LicenseKey)
}

func TestCreateOutlet_InChainUsesBranchKey(t *testing.T) {
	uc, db, _ := newUseCase(t)
	ctx := context.Background()

	chain, err := uc.CreateChain(ctx, "admin-1", dto.CreateChainRequest{
		ChainName: "Cadena Norte", MasterAdminName: "Carla Jefa", MasterAdminEmail: "carla@example.com", PlanID: planID,
	})
	require.NoError(t, err)
	require.NotEmpty(t, chain.MasterLicenseKey)
	master, _ := db.Token(chain.MasterLicenseKey)
	assert.Equal(t, entity.KeyTypeMaster, master.KeyType)
	assert.Equal(t, entity.ProfileChainOutlet, master.TargetKind)

	in := outletRequest()
	in.ChainID = chain.ID
	out, err := uc.CreateOutlet(ctx, "admin-1", in)
	require.NoError(t, err)
	assert.Equal(t, entity.OutletTypeBranch, out.OutletType)
	assert.Equal(t, chain.ID, out.ChainID)
	branch, _ := db.Token(out.LicenseKey)
	assert.Equal(t, entity.KeyTypeBranch, branch.KeyType)

	got, err := uc.GetChain(ctx, chain.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalOutlets)

	list, err := uc.ListOutlets(ctx, chain.ID, dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, 20, list.Page.Limit)
	assert.Empty(t, list.Items[0].LicenseKey, "los listados no exponen licencias")
}

func TestCreateOutlet_RollsBackOnFailure(t *testing.T) {
	uc, db, _ := newUseCase(t)
	ctx := context.Background()
	chain, err := uc.CreateChain(ctx, "admin-1", dto.CreateChainRequest{
		ChainName: "Cadena Sur", MasterAdminName: "Carla Jefa", MasterAdminEmail: "carla@example.com", PlanID: planID,
	})
	require.NoError(t, err)

	db.BeforeCommit = func() error { return errors.New("conexión perdida") }
	in := outletRequest()
	in.ChainID = chain.ID
	_, err = uc.CreateOutlet(ctx, "admin-1", in)
	require.Error(t, err)
	db.BeforeCommit = nil

	got, err := uc.GetChain(ctx, chain.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.TotalOutlets, "el contador de la cadena se revierte")
	list, err := uc.ListOutlets(ctx, "", dto.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

func TestCreateOutlet_Validation(t *testing.T) {
	uc, _, _ := newUseCase(t)
	ctx := context.Background()

	cases := map[string]func(*dto.CreateOutletRequest){
		"email inválido":   func(r *dto.CreateOutletRequest) { r.OwnerEmail = "no-es-email" },
		"plan no uuid":     func(r *dto.CreateOutletRequest) { r.PlanID = "P-30" },
		"plan inexistente": func(r *dto.CreateOutletRequest) { r.PlanID = "00000000-0000-4000-8000-000000000000" },
		"cadena inexistente": func(r *dto.CreateOutletRequest) {
			r.ChainID = "00000000-0000-4000-8000-000000000001"
		},
		"nombre vacío": func(r *dto.CreateOutletRequest) { r.OutletName = " " },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := outletRequest()
			mutate(&in)
			_, err := uc.CreateOutlet(ctx, "admin-1", in)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestGet_NotFound(t *testing.T) {
	uc, _, _ := newUseCase(t)
	ctx := context.Background()
	for _, id := range []string{"nope", "00000000-0000-4000-8000-0000000000ff"} {
		_, err := uc.GetOutlet(ctx, id)
		assert.ErrorIs(t, err, domain.ErrNotFound, id)
		_, err = uc.GetChain(ctx, id)
		assert.ErrorIs(t, err, domain.ErrNotFound, id)
		_, err = uc.LicenseSheetPDF(ctx, id)
		assert.ErrorIs(t, err, domain.ErrNotFound, id)
	}
}

func TestMalformedChainIDIsInvalidInput(t *testing.T) {
	uc, _, _ := newUseCase(t)
	ctx := context.Background()

	_, err := uc.ListOutlets(ctx, "abc", dto.PageRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	in := outletRequest()
	in.ChainID = "abc"
	_, err = uc.CreateOutlet(ctx, "admin-1", in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestListChains(t *testing.T) {
	uc, _, _ := newUseCase(t)
	ctx := context.Background()
	for _, name := range []string{"Cadena Norte", "Cadena Sur"} {
		_, err := uc.CreateChain(ctx, "admin-1", dto.CreateChainRequest{
			ChainName: name, MasterAdminName: "Carla Jefa", MasterAdminEmail: "carla@example.com", PlanID: planID,
		})
		require.NoError(t, err)
	}

	list, err := uc.ListChains(ctx, dto.PageRequest{Limit: 1})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, 1, list.Page.Limit)
	assert.Empty(t, list.Items[0].MasterLicenseKey, "los listados no exponen licencias")

	list, err = uc.ListChains(ctx, dto.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, list.Items, 2)
}

// ──────────────────────────────────────────────────────────────────────────────
// Renovaciones y bajas
// ──────────────────────────────────────────────────────────────────────────────

const (
	outletID = "0b6f3c1e-8a2d-4e5f-9a1b-2c3d4e5f6a7b"
	chainID  = "1c7a4d2f-9b3e-4f60-8b2c-3d4e5f6a7b8c"
)

func seedActiveOutlet(db *testutil.MemStore, end *time.Time) {
	start := testNow.AddDate(0, -1, 0)
	ref := "identity-1"
	db.SeedOutlet(entity.OutletProfile{
		ID: outletID, IdentityRef: &ref, OutletName: "Cocina Centro", OutletType: entity.OutletTypeSingle,
		OwnerEmail: "owner@example.com", PlanID: planID, PlanStartDate: &start, PlanEndDate: end,
		IsActive: true, CreatedAt: start,
	})
}

func TestRenewOutletPlan_ExtendsFromCurrentEnd(t *testing.T) {
	uc, db, _ := newUseCase(t)
	end := testNow.AddDate(0, 0, 5)
	seedActiveOutlet(db, &end)

	res, err := uc.RenewOutletPlan(context.Background(), outletID, dto.RenewPlanRequest{PlanID: planID, AmountPaid: decimal.NewFromInt(49900)})
	require.NoError(t, err)
	assert.Equal(t, end, res.PlanStartDate, "el plan vigente se extiende desde su fin")
	require.NotNil(t, res.NewEndDate)
	assert.Equal(t, end.AddDate(0, 0, 30), *res.NewEndDate)
	assert.Equal(t, "49900", res.AmountPaid.String())

	got, err := uc.GetOutlet(context.Background(), outletID)
	require.NoError(t, err)
	assert.Equal(t, *res.NewEndDate, *got.PlanEndDate)
}

func TestRenewOutletPlan_ExpiredStartsToday(t *testing.T) {
	uc, db, _ := newUseCase(t)
	end := testNow.AddDate(0, 0, -3)
	seedActiveOutlet(db, &end)

	res, err := uc.RenewOutletPlan(context.Background(), outletID, dto.RenewPlanRequest{PlanID: planID})
	require.NoError(t, err)
	assert.Equal(t, testNow, res.PlanStartDate)
	assert.Equal(t, testNow.AddDate(0, 0, 30), *res.NewEndDate)
}

func TestRenewOutletPlan_UnlimitedPlanHasNoEnd(t *testing.T) {
	uc, db, _ := newUseCase(t)
	const unlimited = "2a8b5e3f-0c4d-4e71-9c3d-4e5f6a7b8c9d"
	db.SeedPlan(entity.PlanType{ID: unlimited, Name: "Perpetuo", IsActive: true})
	end := testNow.AddDate(0, 0, -3)
	seedActiveOutlet(db, &end)

	res, err := uc.RenewOutletPlan(context.Background(), outletID, dto.RenewPlanRequest{PlanID: unlimited})
	require.NoError(t, err)
	assert.Nil(t, res.NewEndDate)
	assert.Equal(t, unlimited, res.PlanID)
}

func TestRenewOutletPlan_Errors(t *testing.T) {
	uc, db, _ := newUseCase(t)
	ctx := context.Background()
	end := testNow.AddDate(0, 0, 5)
	seedActiveOutlet(db, &end)

	_, err := uc.RenewOutletPlan(ctx, outletID, dto.RenewPlanRequest{PlanID: planID, AmountPaid: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "monto negativo")
	_, err = uc.RenewOutletPlan(ctx, outletID, dto.RenewPlanRequest{PlanID: "P-30"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "plan no uuid")
	_, err = uc.RenewOutletPlan(ctx, "abc", dto.RenewPlanRequest{PlanID: planID})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = uc.RenewOutletPlan(ctx, "00000000-0000-4000-8000-0000000000ff", dto.RenewPlanRequest{PlanID: planID})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	pending, err := uc.CreateOutlet(ctx, "admin-1", outletRequest())
	require.NoError(t, err)
	_, err = uc.RenewOutletPlan(ctx, pending.ID, dto.RenewPlanRequest{PlanID: planID})
	assert.ErrorIs(t, err, domain.ErrConflict, "un outlet sin activar recibe el plan al activarse")
}

func TestRenewPlan_StaleEndIsConflict(t *testing.T) {
	_, db, _ := newUseCase(t)
	end := testNow.AddDate(0, 0, 5)
	seedActiveOutlet(db, &end)

	stale := testNow.AddDate(0, 0, 1)
	err := db.Repos().Outlets.RenewPlan(context.Background(), outletID, entity.PlanRenewal{
		PlanID: planID, PlanStartDate: testNow, PreviousEnd: &stale, RenewedAt: testNow,
	})
	assert.ErrorIs(t, err, domain.ErrConflict, "otra renovación cambió el fin entretanto")
}

func TestRenewChainPlan(t *testing.T) {
	uc, db, _ := newUseCase(t)
	ctx := context.Background()
	ref := "identity-2"
	db.SeedChain(entity.ChainProfile{
		ID: chainID, IdentityRef: &ref, ChainName: "Cadena Norte", MasterAdminEmail: "carla@example.com",
		PlanID: planID, IsActive: true, CreatedAt: testNow,
	})

	res, err := uc.RenewChainPlan(ctx, chainID, dto.RenewPlanRequest{PlanID: planID})
	require.NoError(t, err)
	assert.Equal(t, string(entity.ProfileChainOutlet), res.TargetKind)
	assert.Equal(t, testNow, res.PlanStartDate, "sin fin previo el periodo arranca hoy")
	assert.Equal(t, testNow.AddDate(0, 0, 30), *res.NewEndDate)

	got, err := uc.GetChain(ctx, chainID)
	require.NoError(t, err)
	assert.Equal(t, *res.NewEndDate, *got.PlanEndDate)

	_, err = uc.RenewChainPlan(ctx, "abc", dto.RenewPlanRequest{PlanID: planID})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeactivate(t *testing.T) {
	uc, db, _ := newUseCase(t)
	ctx := context.Background()
	end := testNow.AddDate(0, 0, 5)
	seedActiveOutlet(db, &end)
	db.SeedChain(entity.ChainProfile{ID: chainID, ChainName: "Cadena Norte", PlanID: planID, IsActive: true, CreatedAt: testNow})

	require.NoError(t, uc.DeactivateOutlet(ctx, outletID))
	got, err := uc.GetOutlet(ctx, outletID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	require.NoError(t, uc.DeactivateChain(ctx, chainID))
	chain, err := uc.GetChain(ctx, chainID)
	require.NoError(t, err)
	assert.False(t, chain.IsActive)

	assert.ErrorIs(t, uc.DeactivateOutlet(ctx, "abc"), domain.ErrNotFound)
	assert.ErrorIs(t, uc.DeactivateChain(ctx, "00000000-0000-4000-8000-0000000000ff"), domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Licencias
// ──────────────────────────────────────────────────────────────────────────────

func TestVerifyToken(t *testing.T) {
	uc, db, _ := newUseCase(t)
	ctx := context.Background()
	out, err := uc.CreateOutlet(ctx, "admin-1", outletRequest())
	require.NoError(t, err)

	v, err := uc.VerifyToken(ctx, out.LicenseKey)
	require.NoError(t, err)
	assert.True(t, v.Valid)
	assert.False(t, v.AlreadyUsed)
	assert.Equal(t, "Cocina Centro", v.TargetName)
	assert.Equal(t, "Olga Dueña", v.OwnerName)
	assert.Equal(t, string(entity.ProfileSingleOutlet), v.TargetKind)

	v, err = uc.VerifyToken(ctx, "no-existe")
	require.NoError(t, err)
	assert.False(t, v.Valid)

	require.NoError(t, db.Repos().Tokens.Consume(ctx, out.LicenseKey, "owner@example.com", testNow))
	v, err = uc.VerifyToken(ctx, out.LicenseKey)
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.True(t, v.AlreadyUsed)

	expired := testNow.Add(-time.Hour)
	db.SeedOutlet(entity.OutletProfile{ID: "O-9", OutletName: "Vieja", PlanID: planID})
	db.SeedToken(entity.InvitationToken{ID: "K-9", Token: "TOK-9", KeyType: entity.KeyTypeLicense,
		TargetKind: entity.ProfileSingleOutlet, TargetID: "O-9", ExpiresAt: &expired})
	v, err = uc.VerifyToken(ctx, "TOK-9")
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.True(t, v.Expired)

	_, err = uc.VerifyToken(ctx, "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLicenseSheetPDF(t *testing.T) {
	uc, _, renderer := newUseCase(t)
	ctx := context.Background()
	out, err := uc.CreateOutlet(ctx, "admin-1", outletRequest())
	require.NoError(t, err)

	pdf, err := uc.LicenseSheetPDF(ctx, out.ID)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
	assert.Equal(t, out.LicenseKey, renderer.got.LicenseKey)
	assert.Equal(t, "Mensual", renderer.got.PlanName)
	assert.Equal(t, "Medellín", renderer.got.City)
	assert.Equal(t, entity.KeyTypeLicense, renderer.got.KeyType)
}
