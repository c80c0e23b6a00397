package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/kds-identity-api/internal/application/dto"
	"github.com/jhoicas/kds-identity-api/internal/application/identity"
	"github.com/jhoicas/kds-identity-api/internal/application/provisioning"
	"github.com/jhoicas/kds-identity-api/internal/domain/entity"
	apphttp "github.com/jhoicas/kds-identity-api/internal/interfaces/http"
	"github.com/jhoicas/kds-identity-api/internal/testutil"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const testPlanID = "5f0c7a9e-1d2b-4c3a-9e8f-7a6b5c4d3e2f"

type pdfStub struct{}

func (pdfStub) RenderLicenseSheet(context.Context, provisioning.LicenseSheet) ([]byte, error) {
	return []byte("%PDF-1.3 stub"), nil
}

type testApp struct {
	app *fiber.App
	idp *testutil.FakeIdentityStore
	db  *testutil.MemStore
}

// buildTestApp construye la API completa sobre los dobles en memoria.
func buildTestApp(t *testing.T) *testApp {
	t.Helper()
	idp := testutil.NewFakeIdentityStore()
	db := testutil.NewMemStore()
	db.SeedPlan(entity.PlanType{ID: testPlanID, Name: "Mensual", DurationDays: 30, IsActive: true})
	repos := db.Repos()
	deps := identity.Deps{
		Store:   idp,
		Tx:      db,
		Admins:  repos.Admins,
		Outlets: repos.Outlets,
		Chains:  repos.Chains,
		Links:   repos.Links,
		Tokens:  repos.Tokens,
		Plans:   db.Plans(),
		Orphans: db.Orphans(),
		Log:     zerolog.Nop(),
		Config:  identity.Config{IdentityTimeout: time.Second, ProfileTimeout: time.Second, CreateRetries: 1},
	}
	prov := provisioning.NewUseCase(provisioning.Deps{
		Tx:       db,
		Outlets:  repos.Outlets,
		Chains:   repos.Chains,
		Tokens:   repos.Tokens,
		Plans:    db.Plans(),
		Renderer: pdfStub{},
		Log:      zerolog.Nop(),
	})

	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		Registration: identity.NewRegistrationOrchestrator(deps),
		Activation:   identity.NewActivationOrchestrator(deps),
		Sessions:     identity.NewSessionOrchestrator(deps),
		Provisioning: prov,
		Log:          zerolog.Nop(),
	})
	return &testApp{app: app, idp: idp, db: db}
}

// do lanza la petición y devuelve status y cuerpo.
func (a *testApp) do(t *testing.T, method, path, token string, body any) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func errorKind(t *testing.T, body []byte) dto.ErrorResponse {
	t.Helper()
	var e dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &e))
	return e
}

func registerBody(email string) dto.RegisterRequest {
	return dto.RegisterRequest{
		Email:             email,
		Credential:        "Secret123",
		DisplayAttributes: dto.DisplayAttributes{FullName: "Ana Admin"},
	}
}

// registerAdmin registra un admin y devuelve su access token.
func (a *testApp) registerAdmin(t *testing.T) string {
	t.Helper()
	status, body := a.do(t, http.MethodPost, "/identity/register", "", registerBody("admin@example.com"))
	require.Equal(t, http.StatusCreated, status, string(body))
	status, body = a.do(t, http.MethodPost, "/identity/login", "", dto.LoginRequest{Email: "admin@example.com", Credential: "Secret123"})
	require.Equal(t, http.StatusOK, status, string(body))
	var login dto.LoginResponse
	require.NoError(t, json.Unmarshal(body, &login))
	return login.AccessToken
}

// ──────────────────────────────────────────────────────────────────────────────
// Identidad
// ──────────────────────────────────────────────────────────────────────────────

func TestRegister_CreatedThenDuplicate(t *testing.T) {
	a := buildTestApp(t)

	status, body := a.do(t, http.MethodPost, "/identity/register", "", registerBody("admin@example.com"))
	require.Equal(t, http.StatusCreated, status, string(body))
	var out dto.IdentityProfileResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.NotEmpty(t, out.IdentityID)
	assert.Equal(t, "admin", out.Profile.Kind)
	assert.Equal(t, out.IdentityID, out.Profile.IdentityRef)

	status, body = a.do(t, http.MethodPost, "/identity/register", "", registerBody("admin@example.com"))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, apphttp.KindDuplicateIdentity, errorKind(t, body).Kind)
	assert.Equal(t, 1, a.idp.Count())
}

func TestRegister_ValidationAndBadBody(t *testing.T) {
	a := buildTestApp(t)

	in := registerBody("admin@example.com")
	in.Credential = "short"
	status, body := a.do(t, http.MethodPost, "/identity/register", "", in)
	assert.Equal(t, http.StatusBadRequest, status)
	e := errorKind(t, body)
	assert.Equal(t, apphttp.KindValidation, e.Kind)
	assert.Contains(t, e.Message, "8 caracteres")

	req := httptest.NewRequest(http.MethodPost, "/identity/register", bytes.NewReader([]byte("{no json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, apphttp.KindInvalidBody, errorKind(t, raw).Kind)
}

func TestLogin_UniformInvalidCredentials(t *testing.T) {
	a := buildTestApp(t)
	a.registerAdmin(t)

	s1, b1 := a.do(t, http.MethodPost, "/identity/login", "", dto.LoginRequest{Email: "admin@example.com", Credential: "Wrong123"})
	s2, b2 := a.do(t, http.MethodPost, "/identity/login", "", dto.LoginRequest{Email: "nobody@example.com", Credential: "Secret123"})
	assert.Equal(t, http.StatusUnauthorized, s1)
	assert.Equal(t, s1, s2)
	assert.JSONEq(t, string(b1), string(b2), "no se revela si el email existe")
}

func TestLogin_IdentityWithoutProfileIs404(t *testing.T) {
	a := buildTestApp(t)
	a.idp.Seed("ghost@example.com", "Secret123", nil)

	status, body := a.do(t, http.MethodPost, "/identity/login", "", dto.LoginRequest{Email: "ghost@example.com", Credential: "Secret123"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, apphttp.KindProfileNotFound, errorKind(t, body).Kind)
}

func TestMe_RequiresBearer(t *testing.T) {
	a := buildTestApp(t)
	token := a.registerAdmin(t)

	status, body := a.do(t, http.MethodGet, "/identity/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, apphttp.KindUnauthorized, errorKind(t, body).Kind)

	status, _ = a.do(t, http.MethodGet, "/identity/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = a.do(t, http.MethodGet, "/identity/me", token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var me dto.ProfileResponse
	require.NoError(t, json.Unmarshal(body, &me))
	assert.Equal(t, "admin@example.com", me.Email)

	name := "Ana María"
	status, body = a.do(t, http.MethodPatch, "/identity/me", token, dto.UpdateProfileRequest{FullName: &name})
	require.Equal(t, http.StatusOK, status, string(body))
	require.NoError(t, json.Unmarshal(body, &me))
	assert.Equal(t, "Ana María", me.Name)
}

// ──────────────────────────────────────────────────────────────────────────────
// Aprovisionamiento + activación de extremo a extremo
// ──────────────────────────────────────────────────────────────────────────────

func TestProvisionAndActivateOutlet(t *testing.T) {
	a := buildTestApp(t)
	admin := a.registerAdmin(t)

	status, body := a.do(t, http.MethodPost, "/outlets", admin, dto.CreateOutletRequest{
		OutletName: "Cocina Centro", OwnerName: "Olga Dueña", OwnerEmail: "owner@example.com", PlanID: testPlanID,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var outlet dto.OutletResponse
	require.NoError(t, json.Unmarshal(body, &outlet))
	require.NotEmpty(t, outlet.LicenseKey)

	status, body = a.do(t, http.MethodGet, "/licenses/"+outlet.LicenseKey+"/verify", "", nil)
	require.Equal(t, http.StatusOK, status)
	var v dto.TokenVerificationResponse
	require.NoError(t, json.Unmarshal(body, &v))
	assert.True(t, v.Valid)

	activate := dto.ActivateRequest{
		InvitationToken:   outlet.LicenseKey,
		Email:             "owner@example.com",
		Credential:        "Secret123",
		DisplayAttributes: dto.DisplayAttributes{FullName: "Olga Dueña"},
	}
	status, body = a.do(t, http.MethodPost, "/identity/activate", "", activate)
	require.Equal(t, http.StatusOK, status, string(body))

	activate.Email = "other@example.com"
	status, body = a.do(t, http.MethodPost, "/identity/activate", "", activate)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, apphttp.KindTokenAlreadyConsumed, errorKind(t, body).Kind)

	// El dueño puede iniciar sesión pero no administrar.
	status, body = a.do(t, http.MethodPost, "/identity/login", "", dto.LoginRequest{Email: "owner@example.com", Credential: "Secret123"})
	require.Equal(t, http.StatusOK, status, string(body))
	var login dto.LoginResponse
	require.NoError(t, json.Unmarshal(body, &login))
	assert.Equal(t, string(entity.ProfileSingleOutlet), login.Profile.Kind)

	status, body = a.do(t, http.MethodGet, "/plans", login.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, apphttp.KindForbidden, errorKind(t, body).Kind)
}

func TestActivate_UnknownToken(t *testing.T) {
	a := buildTestApp(t)
	status, body := a.do(t, http.MethodPost, "/identity/activate", "", dto.ActivateRequest{
		InvitationToken: "nope", Email: "x@example.com", Credential: "Secret123",
		DisplayAttributes: dto.DisplayAttributes{FullName: "Xavier"},
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, apphttp.KindTokenNotFound, errorKind(t, body).Kind)
	assert.Equal(t, 0, a.idp.Count(), "no se crea identidad para una licencia inexistente")
}

func TestAdminRoutes(t *testing.T) {
	a := buildTestApp(t)
	admin := a.registerAdmin(t)

	status, _ := a.do(t, http.MethodGet, "/plans", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := a.do(t, http.MethodGet, "/plans?active=true", admin, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var plans []dto.PlanResponse
	require.NoError(t, json.Unmarshal(body, &plans))
	assert.Len(t, plans, 1)

	status, body = a.do(t, http.MethodPost, "/chains", admin, dto.CreateChainRequest{
		ChainName: "Cadena Norte", MasterAdminName: "Carla Jefa", MasterAdminEmail: "carla@example.com", PlanID: testPlanID,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var chain dto.ChainResponse
	require.NoError(t, json.Unmarshal(body, &chain))
	assert.NotEmpty(t, chain.MasterLicenseKey)

	status, _ = a.do(t, http.MethodGet, "/chains/"+chain.ID, admin, nil)
	assert.Equal(t, http.StatusOK, status)
	status, body = a.do(t, http.MethodGet, "/outlets/missing", admin, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, apphttp.KindNotFound, errorKind(t, body).Kind)

	status, body = a.do(t, http.MethodGet, "/chains", admin, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var chains dto.ChainListResponse
	require.NoError(t, json.Unmarshal(body, &chains))
	require.Len(t, chains.Items, 1)
	assert.Equal(t, chain.ID, chains.Items[0].ID)
}

func TestMalformedIDs(t *testing.T) {
	a := buildTestApp(t)
	admin := a.registerAdmin(t)

	for _, path := range []string{"/outlets/abc", "/chains/abc", "/outlets/abc/license.pdf"} {
		status, body := a.do(t, http.MethodGet, path, admin, nil)
		assert.Equal(t, http.StatusNotFound, status, path)
		assert.Equal(t, apphttp.KindNotFound, errorKind(t, body).Kind, path)
	}
	status, _ := a.do(t, http.MethodDelete, "/outlets/abc", admin, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = a.do(t, http.MethodPost, "/chains/abc/renew", admin, dto.RenewPlanRequest{PlanID: testPlanID})
	assert.Equal(t, http.StatusNotFound, status)

	status, body := a.do(t, http.MethodGet, "/outlets?chain_id=abc", admin, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	e := errorKind(t, body)
	assert.Equal(t, apphttp.KindValidation, e.Kind)
	assert.Contains(t, e.Message, "chain_id")
}

func TestRenewExpiredOutletRestoresLogin(t *testing.T) {
	a := buildTestApp(t)
	admin := a.registerAdmin(t)

	status, body := a.do(t, http.MethodPost, "/outlets", admin, dto.CreateOutletRequest{
		OutletName: "Cocina Centro", OwnerName: "Olga Dueña", OwnerEmail: "owner@example.com", PlanID: testPlanID,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var outlet dto.OutletResponse
	require.NoError(t, json.Unmarshal(body, &outlet))

	// Sin activar no hay periodo que renovar.
	status, body = a.do(t, http.MethodPost, "/outlets/"+outlet.ID+"/renew", admin, dto.RenewPlanRequest{PlanID: testPlanID})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, apphttp.KindConflict, errorKind(t, body).Kind)

	status, body = a.do(t, http.MethodPost, "/identity/activate", "", dto.ActivateRequest{
		InvitationToken: outlet.LicenseKey, Email: "owner@example.com", Credential: "Secret123",
		DisplayAttributes: dto.DisplayAttributes{FullName: "Olga Dueña"},
	})
	require.Equal(t, http.StatusOK, status, string(body))

	// El plan vence.
	current, err := a.db.Repos().Outlets.GetByID(context.Background(), outlet.ID)
	require.NoError(t, err)
	past := time.Now().UTC().AddDate(0, 0, -1)
	current.PlanEndDate = &past
	a.db.SeedOutlet(*current)

	login := dto.LoginRequest{Email: "owner@example.com", Credential: "Secret123"}
	status, body = a.do(t, http.MethodPost, "/identity/login", "", login)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, apphttp.KindPlanExpired, errorKind(t, body).Kind)

	status, body = a.do(t, http.MethodPost, "/outlets/"+outlet.ID+"/renew", admin, map[string]any{
		"plan_id": testPlanID, "amount_paid": "49900",
	})
	require.Equal(t, http.StatusOK, status, string(body))
	var renewal dto.RenewalResponse
	require.NoError(t, json.Unmarshal(body, &renewal))
	require.NotNil(t, renewal.NewEndDate)
	assert.True(t, renewal.NewEndDate.After(time.Now().AddDate(0, 0, 29)))
	assert.Equal(t, "49900", renewal.AmountPaid.String())

	status, body = a.do(t, http.MethodPost, "/identity/login", "", login)
	require.Equal(t, http.StatusOK, status, "tras renovar el dueño vuelve a entrar: %s", body)

	// La baja bloquea el acceso.
	status, _ = a.do(t, http.MethodDelete, "/outlets/"+outlet.ID, admin, nil)
	require.Equal(t, http.StatusNoContent, status)
	status, body = a.do(t, http.MethodPost, "/identity/login", "", login)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, apphttp.KindProfileInactive, errorKind(t, body).Kind)

	status, body = a.do(t, http.MethodPost, "/outlets/"+outlet.ID+"/renew", admin, dto.RenewPlanRequest{PlanID: testPlanID, AmountPaid: decimal.NewFromInt(-5)})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, apphttp.KindValidation, errorKind(t, body).Kind)
}

func TestRenewAndDeactivateChain(t *testing.T) {
	a := buildTestApp(t)
	admin := a.registerAdmin(t)
	status, body := a.do(t, http.MethodPost, "/chains", admin, dto.CreateChainRequest{
		ChainName: "Cadena Norte", MasterAdminName: "Carla Jefa", MasterAdminEmail: "carla@example.com", PlanID: testPlanID,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var chain dto.ChainResponse
	require.NoError(t, json.Unmarshal(body, &chain))

	status, body = a.do(t, http.MethodPost, "/identity/activate", "", dto.ActivateRequest{
		InvitationToken: chain.MasterLicenseKey, Email: "carla@example.com", Credential: "Secret123",
		DisplayAttributes: dto.DisplayAttributes{FullName: "Carla Jefa"},
	})
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = a.do(t, http.MethodPost, "/chains/"+chain.ID+"/renew", admin, dto.RenewPlanRequest{PlanID: testPlanID})
	require.Equal(t, http.StatusOK, status, string(body))
	var renewal dto.RenewalResponse
	require.NoError(t, json.Unmarshal(body, &renewal))
	assert.Equal(t, string(entity.ProfileChainOutlet), renewal.TargetKind)
	require.NotNil(t, renewal.NewEndDate)
	assert.True(t, renewal.NewEndDate.After(time.Now().AddDate(0, 0, 59)), "el plan vigente se extiende desde su fin")

	status, _ = a.do(t, http.MethodDelete, "/chains/"+chain.ID, admin, nil)
	require.Equal(t, http.StatusNoContent, status)
	status, body = a.do(t, http.MethodGet, "/chains/"+chain.ID, admin, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &chain))
	assert.False(t, chain.IsActive)
}

func TestLicenseSheetPDF(t *testing.T) {
	a := buildTestApp(t)
	admin := a.registerAdmin(t)
	status, body := a.do(t, http.MethodPost, "/outlets", admin, dto.CreateOutletRequest{
		OutletName: "Cocina Centro", OwnerName: "Olga Dueña", OwnerEmail: "owner@example.com", PlanID: testPlanID,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var outlet dto.OutletResponse
	require.NoError(t, json.Unmarshal(body, &outlet))

	req := httptest.NewRequest(http.MethodGet, "/outlets/"+outlet.ID+"/license.pdf", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	raw, _ := io.ReadAll(resp.Body)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF")))
}
