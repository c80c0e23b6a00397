// reconcile ejecuta una pasada del reconciliador de identidades huérfanas y termina.
// Pensado para un cron cuando RECONCILE_INTERVAL_SECONDS=0 en la API.
//
// Uso: go run ./cmd/reconcile [-batch 100]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/jhoicas/kds-identity-api/internal/application/dto"
	"github.com/jhoicas/kds-identity-api/internal/application/identity"
	"github.com/jhoicas/kds-identity-api/internal/application/ports"
	"github.com/jhoicas/kds-identity-api/internal/infrastructure/postgres"
	"github.com/jhoicas/kds-identity-api/internal/infrastructure/supabase"
	"github.com/jhoicas/kds-identity-api/pkg/config"
	"github.com/jhoicas/kds-identity-api/pkg/logger"
)

// Códigos de salida: 0 sin pendientes, 1 error de arranque o de la pasada, 2 quedaron huérfanos sin resolver.
const (
	exitOK      = 0
	exitError   = 1
	exitPending = 2
)

type reconcileRunner interface {
	RunOnce(ctx context.Context) (*dto.ReconcileReport, error)
}

func main() {
	os.Exit(run())
}

// run arma las dependencias y ejecuta una pasada. Devuelve el código de salida para que los
// defer (señales, pool) se ejecuten antes de os.Exit.
func run() int {
	batch := flag.Int("batch", 100, "huérfanos por pasada")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "cargar configuración:", err)
		return exitError
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("configuración inválida")
		return exitError
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("conexión a PostgreSQL")
		return exitError
	}
	defer pool.Close()

	var store ports.IdentityStore
	if cfg.Identity.Strategy == config.StrategyLocal {
		store = postgres.NewLocalIdentityStore(pool, postgres.LocalIdentityConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})
	} else {
		store = supabase.NewAuthClient(cfg.Identity.SupabaseURL, cfg.Identity.SupabaseServiceKey, cfg.Identity.SupabaseAnonKey)
	}

	rec := identity.NewReconciler(identity.Deps{
		Store:   store,
		Links:   postgres.NewProfileLinkRepository(pool),
		Orphans: postgres.NewOrphanRepository(pool),
		Log:     log.Component("reconciler"),
		Config: identity.Config{
			Strategy:        cfg.Identity.Strategy,
			IdentityTimeout: cfg.Identity.IdentityTimeout,
			ProfileTimeout:  cfg.Identity.ProfileTimeout,
		},
	}, *batch)

	return reconcileOnce(ctx, rec, log.Component("reconcile"))
}

func reconcileOnce(ctx context.Context, rec reconcileRunner, log zerolog.Logger) int {
	report, err := rec.RunOnce(ctx)
	if err != nil {
		log.Error().Err(err).Msg("reconciliación")
		return exitError
	}
	log.Info().Int("scanned", report.Scanned).Int("resolved", report.Resolved).Int("failed", report.Failed).Msg("reconciliación terminada")
	if report.Failed > 0 {
		return exitPending
	}
	return exitOK
}
