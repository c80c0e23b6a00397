package repository

import "context"

// ProfileRepos repositorios atados a una misma transacción del almacén local.
type ProfileRepos struct {
	Admins  AdminProfileRepository
	Outlets OutletRepository
	Chains  ChainRepository
	Links   ProfileLinkRepository
	Tokens  InvitationTokenRepository
}

// ProfileTxRunner ejecuta fn dentro de una transacción; Commit si fn devuelve nil, Rollback si no.
type ProfileTxRunner interface {
	RunProfile(ctx context.Context, fn func(repos ProfileRepos) error) error
}
