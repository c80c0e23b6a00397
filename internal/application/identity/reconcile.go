package identity

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/kds-identity-api/internal/application/dto"
	"github.com/jhoicas/kds-identity-api/internal/domain"
	"github.com/jhoicas/kds-identity-api/internal/domain/entity"
)

const defaultReconcileBatch = 100

// Reconciler reintenta el borrado de identidades huérfanas registradas por la compensación.
// Antes de borrar comprueba el vínculo: una identidad con perfil no es huérfana.
type Reconciler struct {
	saga
	batch int
}

// NewReconciler construye el reconciliador. batch <= 0 usa 100.
func NewReconciler(d Deps, batch int) *Reconciler {
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	return &Reconciler{saga: newSaga(d), batch: batch}
}

// RunOnce procesa un lote de huérfanos pendientes. Una identidad ya inexistente cuenta como resuelta.
func (r *Reconciler) RunOnce(ctx context.Context) (*dto.ReconcileReport, error) {
	lctx, cancel := r.profileCtx(ctx)
	orphans, err := r.Orphans.ListUnresolved(lctx, r.batch)
	cancel()
	if err != nil {
		return nil, readErr(err)
	}

	report := &dto.ReconcileReport{Scanned: len(orphans)}
	for _, o := range orphans {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		l := r.Log.With().Str("orphan_id", o.ID).Str("identity_id", o.IdentityID).
			Str("email", o.Email).Str("flow", o.Flow).Int("attempts", o.Attempts).Logger()

		lctx, lcancel := r.profileCtx(ctx)
		link, lerr := r.Links.GetByIdentity(lctx, o.IdentityID)
		lcancel()
		if lerr != nil {
			l.Warn().Err(lerr).Msg("no se pudo leer el vínculo, se reintenta en la siguiente pasada")
			r.Metrics.SagaFinished(entity.FlowReconcile, OutcomeOrphaned)
			r.recordAttempt(ctx, l, o.ID, lerr)
			report.Failed++
			continue
		}
		if link != nil {
			r.keepLinked(ctx, l, o.ID, link, report)
			continue
		}

		dctx, dcancel := r.identityCtx(ctx)
		derr := r.Store.Delete(dctx, o.IdentityID)
		dcancel()

		pctx, pcancel := r.profileCtx(ctx)
		if derr == nil || errors.Is(derr, domain.ErrNotFound) {
			if err := r.Orphans.MarkResolved(pctx, o.ID, r.Now()); err != nil {
				l.Error().Err(err).Msg("identidad eliminada pero no se pudo marcar el huérfano")
				report.Failed++
			} else {
				l.Info().Msg("huérfano resuelto")
				r.Metrics.SagaFinished(entity.FlowReconcile, OutcomeCompensated)
				report.Resolved++
			}
		} else {
			l.Warn().Err(derr).Msg("reintento de compensación fallido")
			r.Metrics.SagaFinished(entity.FlowReconcile, OutcomeOrphaned)
			r.recordAttempt(ctx, l, o.ID, derr)
			report.Failed++
		}
		pcancel()
	}
	if report.Scanned > 0 {
		r.Log.Info().Int("scanned", report.Scanned).Int("resolved", report.Resolved).
			Int("failed", report.Failed).Msg("pasada de reconciliación")
	}
	return report, nil
}

// keepLinked cierra un huérfano cuyo perfil sí quedó escrito: la identidad está en uso y no
// se borra.
func (r *Reconciler) keepLinked(ctx context.Context, l zerolog.Logger, orphanID string, link *entity.ProfileLink, report *dto.ReconcileReport) {
	pctx, cancel := r.profileCtx(ctx)
	defer cancel()
	if err := r.Orphans.MarkResolved(pctx, orphanID, r.Now()); err != nil {
		l.Error().Err(err).Msg("identidad vinculada pero no se pudo marcar el huérfano")
		report.Failed++
		return
	}
	l.Info().Str("profile_id", link.ProfileID).Str("profile_kind", string(link.Kind)).
		Msg("huérfano resuelto: la identidad tiene perfil, se conserva")
	r.Metrics.SagaFinished(entity.FlowReconcile, OutcomeSuccess)
	report.Resolved++
}

func (r *Reconciler) recordAttempt(ctx context.Context, l zerolog.Logger, orphanID string, cause error) {
	pctx, cancel := r.profileCtx(ctx)
	defer cancel()
	if err := r.Orphans.RecordAttempt(pctx, orphanID, cause.Error()); err != nil {
		l.Error().Err(err).Msg("no se pudo registrar el intento")
	}
}

// Start ejecuta RunOnce cada interval hasta que ctx termine. Bloquea.
func (r *Reconciler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
				r.Log.Error().Err(err).Msg("reconciliación fallida")
			}
		}
	}
}
