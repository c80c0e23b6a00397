package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/kds-identity-api/internal/domain/repository"
)

var _ repository.ProfileTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunProfile inicia una transacción, ejecuta fn con los repos de perfil atados a la tx y hace
// Commit o Rollback. La activación (perfil + vínculo + licencia) confirma todo o nada.
func (r *TxRunner) RunProfile(ctx context.Context, fn func(repos repository.ProfileRepos) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	repos := repository.ProfileRepos{
		Admins:  NewAdminProfileRepository(tx),
		Outlets: NewOutletRepository(tx),
		Chains:  NewChainRepository(tx),
		Links:   NewProfileLinkRepository(tx),
		Tokens:  NewInvitationTokenRepository(tx),
	}
	if err := fn(repos); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
