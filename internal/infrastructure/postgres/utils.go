package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/kds-identity-api/internal/domain"
)

// Querier lo satisfacen *pgxpool.Pool y pgx.Tx; los repos funcionan igual dentro o fuera de una tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Constraints de vinculación identidad → perfil (ver migraciones).
var linkageConstraints = map[string]bool{
	"profile_links_pkey":              true,
	"profile_links_profile_key":       true,
	"admin_users_identity_ref_key":    true,
	"single_outlets_identity_ref_key": true,
	"chain_outlets_identity_ref_key":  true,
	"auth_identities_email_key":       true,
}

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return strings.Contains(err.Error(), "23505")
}

// uniqueErr traduce 23505: las columnas de vinculación dan ErrDuplicateIdentity, el resto ErrDuplicate.
// Devuelve nil si err no es una violación de unicidad.
func uniqueErr(err error) error {
	if err == nil || !isUniqueViolation(err) {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && linkageConstraints[pgErr.ConstraintName] {
		return domain.ErrDuplicateIdentity
	}
	return domain.ErrDuplicate
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
