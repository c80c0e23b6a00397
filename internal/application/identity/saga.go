// Package identity coordina el proveedor de identidad y el almacén de perfiles.
//
// No existe transacción entre ambos almacenes, así que cada flujo es una saga de dos pasos:
//
//	crear identidad (proveedor) → escribir perfil (Postgres)
//
// La política ante un fallo del segundo paso es única y explícita: compensar borrando la
// identidad recién creada. Si el borrado también falla, la identidad queda registrada en
// orphaned_identities y el Reconciler la reintenta. Un timeout de la transacción local no
// prueba que no hubo commit: antes de borrar se relee el vínculo. No hay reparación
// perezosa en login.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/kds-identity-api/internal/application/ports"
	"github.com/jhoicas/kds-identity-api/internal/domain"
	"github.com/jhoicas/kds-identity-api/internal/domain/entity"
	"github.com/jhoicas/kds-identity-api/internal/domain/repository"
)

// Resultados de saga para métricas.
const (
	OutcomeSuccess     = "success"
	OutcomeRejected    = "rejected"     // falló antes de crear la identidad
	OutcomeCompensated = "compensated"  // identidad borrada tras fallo local
	OutcomeOrphaned    = "orphaned"     // compensación fallida, registrada para el reconciliador
	OutcomeOrphanLost  = "orphan_lost"  // compensación fallida y tampoco se pudo registrar
)

// SagaRecorder recibe el resultado de cada saga. Lo implementa el adaptador de Prometheus.
type SagaRecorder interface {
	SagaFinished(flow, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) SagaFinished(string, string) {}

// Config límites de las llamadas a cada almacén. Strategy solo se registra en logs:
// la elección del IdentityStore ya se hizo al construir las dependencias.
type Config struct {
	Strategy        string
	IdentityTimeout time.Duration
	ProfileTimeout  time.Duration
	CreateRetries   int
}

// Deps dependencias compartidas por los orquestadores.
type Deps struct {
	Store   ports.IdentityStore
	Tx      repository.ProfileTxRunner
	Admins  repository.AdminProfileRepository
	Outlets repository.OutletRepository
	Chains  repository.ChainRepository
	Links   repository.ProfileLinkRepository
	Tokens  repository.InvitationTokenRepository
	Plans   repository.PlanTypeRepository
	Orphans repository.OrphanRepository
	Metrics SagaRecorder
	Log     zerolog.Logger
	Config  Config
	Now     func() time.Time
}

// saga agrupa lo que comparten registro y activación: timeouts, alta idempotente y compensación.
type saga struct {
	Deps
}

func newSaga(d Deps) saga {
	if d.Metrics == nil {
		d.Metrics = nopRecorder{}
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.Config.IdentityTimeout <= 0 {
		d.Config.IdentityTimeout = 5 * time.Second
	}
	if d.Config.ProfileTimeout <= 0 {
		d.Config.ProfileTimeout = 3 * time.Second
	}
	return saga{Deps: d}
}

func (s *saga) identityCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.Config.IdentityTimeout)
}

func (s *saga) profileCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.Config.ProfileTimeout)
}

// newNonce identifica un intento de alta; se guarda en la metadata para reconocer
// una creación propia que respondió tarde.
func newNonce() string { return uuid.NewString() }

// createIdentity crea la identidad con timeout por llamada. Si el resultado es desconocido
// (timeout) consulta por email antes de reintentar: una identidad con el mismo nonce es
// nuestra creación lenta y se acepta; con otro nonce es un duplicado real.
func (s *saga) createIdentity(ctx context.Context, flow, email, credential string, meta map[string]string) (string, error) {
	nonce := meta[entity.MetaRegistrationNonce]
	var lastErr error
	for attempt := 0; attempt <= s.Config.CreateRetries; attempt++ {
		cctx, cancel := s.identityCtx(ctx)
		id, err := s.Store.Create(cctx, email, credential, meta)
		cancel()
		if err == nil {
			return id, nil
		}
		lastErr = err

		uncertain := errors.Is(err, domain.ErrUpstreamTimeout) ||
			(attempt > 0 && errors.Is(err, domain.ErrDuplicateIdentity))
		if !uncertain {
			break
		}

		s.Log.Warn().Err(err).Str("flow", flow).Str("email", email).Int("attempt", attempt+1).
			Msg("resultado de creación de identidad desconocido, verificando por email")
		existing, ferr := s.findByEmail(ctx, email)
		if ferr != nil {
			s.Log.Error().Err(ferr).Str("flow", flow).Str("email", email).Msg("no se pudo verificar la identidad por email")
			break
		}
		if existing != nil {
			if nonce != "" && existing.Metadata[entity.MetaRegistrationNonce] == nonce {
				s.Log.Info().Str("flow", flow).Str("identity_id", existing.ID).
					Msg("la creación anterior sí se completó, se reutiliza la identidad")
				return existing.ID, nil
			}
			return "", fmt.Errorf("%w: %w", domain.ErrIdentityCreationFailed, domain.ErrDuplicateIdentity)
		}
		if errors.Is(err, domain.ErrDuplicateIdentity) {
			break
		}
	}
	return "", fmt.Errorf("%w: %w", domain.ErrIdentityCreationFailed, lastErr)
}

func (s *saga) findByEmail(ctx context.Context, email string) (*entity.Identity, error) {
	fctx, cancel := s.identityCtx(ctx)
	defer cancel()
	return s.Store.FindByEmail(fctx, email)
}

// uncertainWrite indica que la transacción local terminó sin respuesta: pudo haber hecho
// commit o no.
func uncertainWrite(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, domain.ErrUpstreamTimeout)
}

// settle decide qué hacer con la identidad tras un fallo del paso local. Si el fallo fue un
// timeout relee el vínculo en un contexto propio: con vínculo el perfil quedó escrito y la
// identidad se conserva (landed=true); sin poder leerlo se registra el huérfano sin borrar
// y el reconciliador decide después. Cualquier otro fallo compensa.
func (s *saga) settle(identityID, profileID, email string, kind entity.ProfileKind, flow string, cause error) (landed bool, outcome string) {
	if !uncertainWrite(cause) {
		return false, s.compensate(identityID, email, kind, flow, cause)
	}
	l := s.Log.With().Str("flow", flow).Str("identity_id", identityID).Str("profile_id", profileID).Logger()

	lctx, cancel := context.WithTimeout(context.Background(), s.Config.ProfileTimeout)
	link, err := s.Links.GetByIdentity(lctx, identityID)
	cancel()
	switch {
	case err != nil:
		l.Error().Err(err).Msg("no se pudo confirmar la escritura del perfil, se conserva la identidad")
		return false, s.recordOrphan(identityID, email, kind, flow, cause, err)
	case link != nil && link.ProfileID == profileID:
		l.Warn().Msg("la transacción respondió tarde pero el perfil quedó escrito")
		return true, OutcomeSuccess
	}
	return false, s.compensate(identityID, email, kind, flow, cause)
}

// compensate borra la identidad creada cuando el paso local falló. Usa un contexto propio,
// desligado de la petición, para que una cancelación del cliente no deje el huérfano.
// Devuelve el outcome aplicado.
func (s *saga) compensate(identityID, email string, kind entity.ProfileKind, flow string, cause error) string {
	dctx, cancel := context.WithTimeout(context.Background(), s.Config.IdentityTimeout)
	err := s.Store.Delete(dctx, identityID)
	cancel()
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		s.Log.Warn().Str("flow", flow).Str("identity_id", identityID).Str("email", email).
			Str("profile_kind", string(kind)).AnErr("cause", cause).
			Msg("compensación aplicada: identidad eliminada tras fallo del perfil")
		return OutcomeCompensated
	}
	return s.recordOrphan(identityID, email, kind, flow, cause, err)
}

// recordOrphan deja la identidad en orphaned_identities para el reconciliador.
func (s *saga) recordOrphan(identityID, email string, kind entity.ProfileKind, flow string, cause, lastErr error) string {
	started := s.Now()
	l := s.Log.With().
		Str("flow", flow).
		Str("identity_id", identityID).
		Str("email", email).
		Str("profile_kind", string(kind)).
		Time("failed_at", started).
		AnErr("cause", cause).
		Logger()

	l.Error().Err(lastErr).Msg("compensación pendiente: identidad huérfana")
	rec := &entity.OrphanRecord{
		ID:          uuid.NewString(),
		IdentityID:  identityID,
		Email:       email,
		ProfileKind: kind,
		Flow:        flow,
		Reason:      errString(cause),
		Attempts:    1,
		LastError:   errString(lastErr),
		CreatedAt:   started,
	}
	octx, ocancel := context.WithTimeout(context.Background(), s.Config.ProfileTimeout)
	defer ocancel()
	if oerr := s.Orphans.Create(octx, rec); oerr != nil {
		l.Error().Err(oerr).Msg("huérfano sin registrar: requiere reparación manual")
		return OutcomeOrphanLost
	}
	l.Warn().Str("orphan_id", rec.ID).Msg("huérfano registrado para el reconciliador")
	return OutcomeOrphaned
}

// readErr traduce un error de lectura del almacén local a la taxonomía.
func readErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrUpstreamRejected, err)
}

// identityErr traduce errores del proveedor fuera del alta.
func identityErr(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrUpstreamTimeout),
		errors.Is(err, domain.ErrUpstreamRejected):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", domain.ErrUpstreamTimeout, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrUpstreamRejected, err)
}

// writeErr envuelve el fallo local; conserva duplicados y licencia consumida para que el
// llamante reciba el error de la restricción que realmente saltó.
func writeErr(err error) error {
	switch {
	case errors.Is(err, domain.ErrTokenAlreadyConsumed):
		return err
	case errors.Is(err, domain.ErrDuplicateIdentity), errors.Is(err, domain.ErrDuplicate):
		return fmt.Errorf("%w: %w", domain.ErrProfileWriteFailed, domain.ErrDuplicateIdentity)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", domain.ErrProfileWriteFailed, domain.ErrUpstreamTimeout)
	}
	return fmt.Errorf("%w: %v", domain.ErrProfileWriteFailed, err)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
