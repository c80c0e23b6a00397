package postgres

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/kds-identity-api/internal/application/ports"
	"github.com/jhoicas/kds-identity-api/internal/domain"
	"github.com/jhoicas/kds-identity-api/internal/domain/entity"
	pkgjwt "github.com/jhoicas/kds-identity-api/pkg/jwt"
)

var _ ports.IdentityStore = (*LocalIdentityStore)(nil)

// dummyHash se compara cuando el email no existe, para que el tiempo de respuesta
// no revele si la cuenta existe.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("kds-dummy-credential"), bcrypt.DefaultCost)

// LocalIdentityConfig parámetros de los tokens emitidos por el almacén local.
type LocalIdentityConfig struct {
	Secret        string
	Issuer        string
	AccessMinutes int
	RefreshTTL    time.Duration
	BcryptCost    int // 0 = bcrypt.DefaultCost
}

// LocalIdentityStore proveedor de identidad sobre Postgres (AUTH_STRATEGY=v1):
// credenciales bcrypt en auth_identities, access tokens HS256 y refresh tokens opacos
// guardados como hash SHA-256 en auth_refresh_tokens.
type LocalIdentityStore struct {
	db  Querier
	cfg LocalIdentityConfig
	now func() time.Time
}

// NewLocalIdentityStore construye el almacén local.
func NewLocalIdentityStore(db Querier, cfg LocalIdentityConfig) *LocalIdentityStore {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.AccessMinutes <= 0 {
		cfg.AccessMinutes = 30
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &LocalIdentityStore{db: db, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

// Create registra la identidad. Email repetido → ErrDuplicateIdentity.
func (s *LocalIdentityStore) Create(ctx context.Context, email, credential string, metadata map[string]string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(credential), s.cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", domain.ErrWeakCredential
		}
		return "", fmt.Errorf("hash credential: %w", err)
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	id := uuid.NewString()
	now := s.now()
	_, err = s.db.Exec(ctx, `
		INSERT INTO auth_identities (id, email, password_hash, metadata, created_at, updated_at)
		VALUES ($1, lower($2), $3, $4, $5, $5)`,
		id, email, string(hash), metadata, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", domain.ErrDuplicateIdentity
		}
		return "", storeErr("create identity", err)
	}
	return id, nil
}

// Authenticate mismo ErrInvalidCredentials para email inexistente y contraseña incorrecta.
func (s *LocalIdentityStore) Authenticate(ctx context.Context, email, credential string) (string, *entity.Session, error) {
	var id, storedEmail, hash string
	var metadata map[string]string
	err := s.db.QueryRow(ctx,
		`SELECT id, email, password_hash, metadata FROM auth_identities WHERE email = lower($1)`, email,
	).Scan(&id, &storedEmail, &hash, &metadata)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(credential))
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, storeErr("authenticate", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(credential)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}
	session, err := s.issue(ctx, id, storedEmail, metadata[entity.MetaRoleKind])
	if err != nil {
		return "", nil, err
	}
	return id, session, nil
}

// UpdateMetadata fusiona las claves dadas con la metadata existente.
func (s *LocalIdentityStore) UpdateMetadata(ctx context.Context, identityID string, metadata map[string]string) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE auth_identities SET metadata = metadata || $2::jsonb, updated_at = $3 WHERE id = $1`,
		identityID, metadata, s.now(),
	)
	if err != nil {
		return storeErr("update metadata", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina la identidad y, en cascada, sus refresh tokens.
func (s *LocalIdentityStore) Delete(ctx context.Context, identityID string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM auth_identities WHERE id = $1`, identityID)
	if err != nil {
		return storeErr("delete identity", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// FindByEmail devuelve nil, nil si no existe.
func (s *LocalIdentityStore) FindByEmail(ctx context.Context, email string) (*entity.Identity, error) {
	return s.findOne(ctx, `SELECT id, email, metadata, created_at FROM auth_identities WHERE email = lower($1)`, email)
}

// Refresh rota el refresh token: el usado queda revocado y se emite un par nuevo.
func (s *LocalIdentityStore) Refresh(ctx context.Context, refreshToken string) (*entity.Session, error) {
	now := s.now()
	var identityID string
	err := s.db.QueryRow(ctx, `
		UPDATE auth_refresh_tokens SET revoked_at = $2
		WHERE token_hash = $1 AND revoked_at IS NULL AND expires_at > $2
		RETURNING identity_id`,
		hashToken(refreshToken), now,
	).Scan(&identityID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, storeErr("refresh", err)
	}
	ident, err := s.findOne(ctx, `SELECT id, email, metadata, created_at FROM auth_identities WHERE id = $1`, identityID)
	if err != nil {
		return nil, err
	}
	if ident == nil {
		return nil, domain.ErrInvalidCredentials
	}
	return s.issue(ctx, ident.ID, ident.Email, ident.Metadata[entity.MetaRoleKind])
}

// Verify valida firma y expiración del access token y que la identidad siga existiendo.
func (s *LocalIdentityStore) Verify(ctx context.Context, accessToken string) (*entity.Identity, error) {
	claims, err := pkgjwt.Parse(s.cfg.Secret, accessToken)
	if err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	ident, err := s.findOne(ctx, `SELECT id, email, metadata, created_at FROM auth_identities WHERE id = $1`, claims.Subject)
	if err != nil {
		return nil, err
	}
	if ident == nil {
		return nil, domain.ErrInvalidCredentials
	}
	return ident, nil
}

func (s *LocalIdentityStore) issue(ctx context.Context, identityID, email, role string) (*entity.Session, error) {
	access, exp, err := pkgjwt.Generate(s.cfg.Secret, identityID, email, role, s.cfg.Issuer, s.cfg.AccessMinutes)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	refresh := base64.RawURLEncoding.EncodeToString(raw)
	now := s.now()
	_, err = s.db.Exec(ctx,
		`INSERT INTO auth_refresh_tokens (token_hash, identity_id, expires_at, created_at) VALUES ($1, $2, $3, $4)`,
		hashToken(refresh), identityID, now.Add(s.cfg.RefreshTTL), now,
	)
	if err != nil {
		return nil, storeErr("store refresh token", err)
	}
	return &entity.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresAt:    exp.UTC(),
	}, nil
}

func (s *LocalIdentityStore) findOne(ctx context.Context, query string, arg any) (*entity.Identity, error) {
	var ident entity.Identity
	err := s.db.QueryRow(ctx, query, arg).Scan(&ident.ID, &ident.Email, &ident.Metadata, &ident.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeErr("get identity", err)
	}
	return &ident, nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// storeErr clasifica el error de Postgres para la taxonomía del proveedor de identidad.
func storeErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", domain.ErrUpstreamTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrUpstreamRejected, op, err)
}
