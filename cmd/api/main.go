package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/jhoicas/kds-identity-api/docs"
	"github.com/jhoicas/kds-identity-api/internal/application/identity"
	"github.com/jhoicas/kds-identity-api/internal/application/ports"
	"github.com/jhoicas/kds-identity-api/internal/application/provisioning"
	"github.com/jhoicas/kds-identity-api/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/kds-identity-api/internal/infrastructure/pdf"
	"github.com/jhoicas/kds-identity-api/internal/infrastructure/postgres"
	"github.com/jhoicas/kds-identity-api/internal/infrastructure/supabase"
	httpRouter "github.com/jhoicas/kds-identity-api/internal/interfaces/http"
	"github.com/jhoicas/kds-identity-api/pkg/config"
	"github.com/jhoicas/kds-identity-api/pkg/logger"
)

func main() {
	migrateOnly := flag.Bool("migrate", false, "aplicar migraciones y salir")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("configuración inválida")
	}
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("auth_strategy", cfg.Identity.Strategy).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if *migrateOnly || cfg.DB.AutoMigrate {
		version, err := postgres.Migrate(pool)
		if err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
		log.Info().Uint("version", version).Msg("migraciones aplicadas")
		if *migrateOnly {
			return
		}
	}

	// La estrategia se elige una sola vez: los orquestadores no conocen v1/v2.
	var store ports.IdentityStore
	switch cfg.Identity.Strategy {
	case config.StrategyLocal:
		store = postgres.NewLocalIdentityStore(pool, postgres.LocalIdentityConfig{
			Secret:        cfg.JWT.Secret,
			Issuer:        cfg.JWT.Issuer,
			AccessMinutes: cfg.JWT.Expiration,
			RefreshTTL:    time.Duration(cfg.JWT.RefreshExpiration) * time.Hour,
		})
	default:
		store = supabase.NewAuthClient(cfg.Identity.SupabaseURL, cfg.Identity.SupabaseServiceKey, cfg.Identity.SupabaseAnonKey)
	}

	sagaMetrics := metrics.NewSagaMetrics(nil)
	txRunner := postgres.NewTxRunner(pool)
	outletRepo := postgres.NewOutletRepository(pool)
	chainRepo := postgres.NewChainRepository(pool)
	tokenRepo := postgres.NewInvitationTokenRepository(pool)
	planRepo := postgres.NewPlanTypeRepository(pool)

	deps := identity.Deps{
		Store:   store,
		Tx:      txRunner,
		Admins:  postgres.NewAdminProfileRepository(pool),
		Outlets: outletRepo,
		Chains:  chainRepo,
		Links:   postgres.NewProfileLinkRepository(pool),
		Tokens:  tokenRepo,
		Plans:   planRepo,
		Orphans: postgres.NewOrphanRepository(pool),
		Metrics: sagaMetrics,
		Log:     log.Component("identity"),
		Config: identity.Config{
			Strategy:        cfg.Identity.Strategy,
			IdentityTimeout: cfg.Identity.IdentityTimeout,
			ProfileTimeout:  cfg.Identity.ProfileTimeout,
			CreateRetries:   cfg.Identity.CreateRetries,
		},
	}

	provisioningUC := provisioning.NewUseCase(provisioning.Deps{
		Tx:       txRunner,
		Outlets:  outletRepo,
		Chains:   chainRepo,
		Tokens:   tokenRepo,
		Plans:    planRepo,
		Renderer: infrapdf.NewLicenseSheetGenerator(),
		Log:      log.Component("provisioning"),
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "KDS Identity API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "auth_strategy": cfg.Identity.Strategy})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpRouter.Router(app, httpRouter.RouterDeps{
		Registration: identity.NewRegistrationOrchestrator(deps),
		Activation:   identity.NewActivationOrchestrator(deps),
		Sessions:     identity.NewSessionOrchestrator(deps),
		Provisioning: provisioningUC,
		Log:          log.Component("http"),
	})

	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()
	if cfg.Identity.ReconcileInterval > 0 {
		reconcileDeps := deps
		reconcileDeps.Log = log.Component("reconciler")
		go identity.NewReconciler(reconcileDeps, 0).Start(bgCtx, cfg.Identity.ReconcileInterval)
		log.Info().Dur("interval", cfg.Identity.ReconcileInterval).Msg("reconciliador de huérfanos activo")
	}

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	stopBackground()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
