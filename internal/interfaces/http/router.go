package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/kds-identity-api/internal/application/identity"
	"github.com/jhoicas/kds-identity-api/internal/application/provisioning"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Registration *identity.RegistrationOrchestrator
	Activation   *identity.ActivationOrchestrator
	Sessions     *identity.SessionOrchestrator
	Provisioning *provisioning.UseCase
	Log          zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Use(RequestLogger(deps.Log))

	identityHandler := NewIdentityHandler(deps.Registration, deps.Activation, deps.Sessions)
	provHandler := NewProvisioningHandler(deps.Provisioning)
	bearer := AuthMiddleware(deps.Sessions)

	// Identidad (público)
	ident := app.Group("/identity")
	ident.Post("/register", identityHandler.Register)
	ident.Post("/login", identityHandler.Login)
	ident.Post("/activate", identityHandler.Activate)
	ident.Post("/refresh", identityHandler.Refresh)

	// Perfil propio (requiere Bearer Token)
	ident.Get("/me", bearer, identityHandler.Me)
	ident.Patch("/me", bearer, identityHandler.UpdateMe)

	// Licencias (público: el dueño verifica antes de activar)
	app.Get("/licenses/:token/verify", provHandler.VerifyLicense)

	// Aprovisionamiento (solo administradores)
	requireAdmin := RequireAdmin()

	plans := app.Group("/plans", bearer, requireAdmin)
	plans.Post("/", provHandler.CreatePlan)
	plans.Get("/", provHandler.ListPlans)

	outlets := app.Group("/outlets", bearer, requireAdmin)
	outlets.Post("/", provHandler.CreateOutlet)
	outlets.Get("/", provHandler.ListOutlets)
	outlets.Get("/:id", provHandler.GetOutlet)
	outlets.Delete("/:id", provHandler.DeactivateOutlet)
	outlets.Get("/:id/license.pdf", provHandler.LicenseSheet)
	outlets.Post("/:id/renew", provHandler.RenewOutletPlan)

	chains := app.Group("/chains", bearer, requireAdmin)
	chains.Post("/", provHandler.CreateChain)
	chains.Get("/", provHandler.ListChains)
	chains.Get("/:id", provHandler.GetChain)
	chains.Delete("/:id", provHandler.DeactivateChain)
	chains.Post("/:id/renew", provHandler.RenewChainPlan)
}
