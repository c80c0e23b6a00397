// Package testutil dobles en memoria de los puertos de persistencia e identidad,
// con inyección de fallos para probar las sagas sin Postgres ni Supabase.
package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/kds-identity-api/internal/domain"
	"github.com/jhoicas/kds-identity-api/internal/domain/entity"
	"github.com/jhoicas/kds-identity-api/internal/domain/repository"
)

type tables struct {
	admins  map[string]entity.AdminProfile
	outlets map[string]entity.OutletProfile
	chains  map[string]entity.ChainProfile
	links   map[string]entity.ProfileLink
	tokens  map[string]entity.InvitationToken
}

func (t tables) clone() tables {
	c := tables{
		admins:  make(map[string]entity.AdminProfile, len(t.admins)),
		outlets: make(map[string]entity.OutletProfile, len(t.outlets)),
		chains:  make(map[string]entity.ChainProfile, len(t.chains)),
		links:   make(map[string]entity.ProfileLink, len(t.links)),
		tokens:  make(map[string]entity.InvitationToken, len(t.tokens)),
	}
	for k, v := range t.admins {
		c.admins[k] = v
	}
	for k, v := range t.outlets {
		c.outlets[k] = v
	}
	for k, v := range t.chains {
		c.chains[k] = v
	}
	for k, v := range t.links {
		c.links[k] = v
	}
	for k, v := range t.tokens {
		c.tokens[k] = v
	}
	return c
}

// MemStore almacén de perfiles en memoria. Las transacciones se serializan y se
// revierten restaurando una copia de las tablas.
type MemStore struct {
	mu   sync.Mutex
	txMu sync.Mutex
	t    tables

	plans   map[string]entity.PlanType
	orphans map[string]entity.OrphanRecord

	// FailLinkCreate error devuelto por Links.Create (simula fallo del paso local).
	FailLinkCreate error
	// FailOrphanCreate error devuelto por Orphans.Create.
	FailOrphanCreate error
	// FailReads error devuelto por cualquier lectura.
	FailReads error
	// BeforeCommit se ejecuta al final de cada transacción; si devuelve error hay rollback.
	BeforeCommit func() error
}

// NewMemStore crea un almacén vacío.
func NewMemStore() *MemStore {
	return &MemStore{
		t: tables{
			admins:  map[string]entity.AdminProfile{},
			outlets: map[string]entity.OutletProfile{},
			chains:  map[string]entity.ChainProfile{},
			links:   map[string]entity.ProfileLink{},
			tokens:  map[string]entity.InvitationToken{},
		},
		plans:   map[string]entity.PlanType{},
		orphans: map[string]entity.OrphanRecord{},
	}
}

// Repos devuelve los repositorios sobre este almacén.
func (s *MemStore) Repos() repository.ProfileRepos {
	return repository.ProfileRepos{
		Admins:  memAdmins{s},
		Outlets: memOutlets{s},
		Chains:  memChains{s},
		Links:   memLinks{s},
		Tokens:  memTokens{s},
	}
}

// Plans repositorio de planes.
func (s *MemStore) Plans() repository.PlanTypeRepository { return memPlans{s} }

// Orphans repositorio de huérfanos.
func (s *MemStore) Orphans() repository.OrphanRepository { return memOrphans{s} }

// RunProfile implementa repository.ProfileTxRunner.
func (s *MemStore) RunProfile(ctx context.Context, fn func(repository.ProfileRepos) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.t.clone()
	s.mu.Unlock()

	err := fn(s.Repos())
	if err == nil && s.BeforeCommit != nil {
		err = s.BeforeCommit()
	}
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.mu.Lock()
		s.t = snapshot
		s.mu.Unlock()
	}
	return err
}

// SeedPlan inserta un plan.
func (s *MemStore) SeedPlan(p entity.PlanType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = p
}

// SeedOutlet inserta un outlet.
func (s *MemStore) SeedOutlet(o entity.OutletProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t.outlets[o.ID] = o
}

// SeedChain inserta una cadena.
func (s *MemStore) SeedChain(c entity.ChainProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t.chains[c.ID] = c
}

// SeedToken inserta una licencia.
func (s *MemStore) SeedToken(t entity.InvitationToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t.tokens[t.Token] = t
}

// SeedOrphan inserta un huérfano.
func (s *MemStore) SeedOrphan(o entity.OrphanRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orphans[o.ID] = o
}

// Counts número de filas por tabla: admins, outlets activos, vínculos, licencias consumidas.
func (s *MemStore) Counts() (admins, activeOutlets, links, consumedTokens int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.t.outlets {
		if o.IsActive {
			activeOutlets++
		}
	}
	for _, t := range s.t.tokens {
		if t.Consumed {
			consumedTokens++
		}
	}
	return len(s.t.admins), activeOutlets, len(s.t.links), consumedTokens
}

// Token devuelve la licencia tal como está guardada.
func (s *MemStore) Token(value string) (entity.InvitationToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.t.tokens[value]
	return t, ok
}

// Link devuelve el vínculo de una identidad.
func (s *MemStore) Link(identityRef string) (entity.ProfileLink, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.t.links[identityRef]
	return l, ok
}

// OrphanList todos los huérfanos ordenados por fecha.
func (s *MemStore) OrphanList() []entity.OrphanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.OrphanRecord, 0, len(s.orphans))
	for _, o := range s.orphans {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ─── admins ───────────────────────────────────────────────────────────────────

type memAdmins struct{ s *MemStore }

func (r memAdmins) Create(_ context.Context, a *entity.AdminProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.t.admins {
		if e.Email == a.Email {
			return domain.ErrDuplicate
		}
		if a.IdentityRef != nil && e.IdentityRef != nil && *e.IdentityRef == *a.IdentityRef {
			return domain.ErrDuplicateIdentity
		}
	}
	r.s.t.admins[a.ID] = *a
	return nil
}

func (r memAdmins) GetByID(_ context.Context, id string) (*entity.AdminProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailReads != nil {
		return nil, r.s.FailReads
	}
	a, ok := r.s.t.admins[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r memAdmins) GetByEmail(_ context.Context, email string) (*entity.AdminProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailReads != nil {
		return nil, r.s.FailReads
	}
	for _, a := range r.s.t.admins {
		if strings.EqualFold(a.Email, email) {
			c := a
			return &c, nil
		}
	}
	return nil, nil
}

func (r memAdmins) UpdateDisplay(_ context.Context, a *entity.AdminProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.t.admins[a.ID]
	if !ok {
		return domain.ErrNotFound
	}
	e.FullName, e.Phone, e.UpdatedAt = a.FullName, a.Phone, a.UpdatedAt
	r.s.t.admins[a.ID] = e
	return nil
}

// ─── outlets ──────────────────────────────────────────────────────────────────

type memOutlets struct{ s *MemStore }

func (r memOutlets) Create(_ context.Context, o *entity.OutletProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.outlets[o.ID]; ok {
		return domain.ErrDuplicate
	}
	r.s.t.outlets[o.ID] = *o
	return nil
}

func (r memOutlets) GetByID(_ context.Context, id string) (*entity.OutletProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailReads != nil {
		return nil, r.s.FailReads
	}
	o, ok := r.s.t.outlets[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r memOutlets) List(_ context.Context, chainID string, limit, offset int) ([]*entity.OutletProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := make([]*entity.OutletProfile, 0, len(r.s.t.outlets))
	for _, o := range r.s.t.outlets {
		if chainID != "" && (o.ChainID == nil || *o.ChainID != chainID) {
			continue
		}
		c := o
		all = append(all, &c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return []*entity.OutletProfile{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r memOutlets) Activate(_ context.Context, id string, act entity.Activation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.t.outlets[id]
	if !ok || o.IdentityRef != nil {
		return domain.ErrTokenAlreadyConsumed
	}
	ref, start := act.IdentityRef, act.PlanStartDate
	o.IdentityRef, o.IsActive, o.PendingActivation = &ref, true, false
	o.PlanStartDate, o.PlanEndDate, o.UpdatedAt = &start, act.PlanEndDate, act.ActivatedAt
	r.s.t.outlets[id] = o
	return nil
}

func (r memOutlets) UpdateDisplay(_ context.Context, o *entity.OutletProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.t.outlets[o.ID]
	if !ok {
		return domain.ErrNotFound
	}
	e.OwnerName, e.OwnerPhone, e.UpdatedAt = o.OwnerName, o.OwnerPhone, o.UpdatedAt
	r.s.t.outlets[o.ID] = e
	return nil
}

func (r memOutlets) RenewPlan(_ context.Context, id string, rn entity.PlanRenewal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.t.outlets[id]
	if !ok || o.PendingActivation || !sameTime(o.PlanEndDate, rn.PreviousEnd) {
		return domain.ErrConflict
	}
	start := rn.PlanStartDate
	o.PlanID, o.PlanStartDate, o.PlanEndDate, o.UpdatedAt = rn.PlanID, &start, rn.PlanEndDate, rn.RenewedAt
	r.s.t.outlets[id] = o
	return nil
}

func (r memOutlets) SetActive(_ context.Context, id string, active bool, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.t.outlets[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.IsActive, o.UpdatedAt = active, at
	r.s.t.outlets[id] = o
	return nil
}

// ─── chains ───────────────────────────────────────────────────────────────────

type memChains struct{ s *MemStore }

func (r memChains) Create(_ context.Context, c *entity.ChainProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.chains[c.ID]; ok {
		return domain.ErrDuplicate
	}
	r.s.t.chains[c.ID] = *c
	return nil
}

func (r memChains) GetByID(_ context.Context, id string) (*entity.ChainProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailReads != nil {
		return nil, r.s.FailReads
	}
	c, ok := r.s.t.chains[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r memChains) List(_ context.Context, limit, offset int) ([]*entity.ChainProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailReads != nil {
		return nil, r.s.FailReads
	}
	all := make([]*entity.ChainProfile, 0, len(r.s.t.chains))
	for _, c := range r.s.t.chains {
		cp := c
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return []*entity.ChainProfile{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (r memChains) Activate(_ context.Context, id string, act entity.Activation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.t.chains[id]
	if !ok || c.IdentityRef != nil {
		return domain.ErrTokenAlreadyConsumed
	}
	ref, start := act.IdentityRef, act.PlanStartDate
	c.IdentityRef, c.IsActive, c.PendingActivation = &ref, true, false
	c.PlanStartDate, c.PlanEndDate, c.UpdatedAt = &start, act.PlanEndDate, act.ActivatedAt
	r.s.t.chains[id] = c
	return nil
}

func (r memChains) UpdateDisplay(_ context.Context, c *entity.ChainProfile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.t.chains[c.ID]
	if !ok {
		return domain.ErrNotFound
	}
	e.MasterAdminName, e.MasterAdminPhone, e.UpdatedAt = c.MasterAdminName, c.MasterAdminPhone, c.UpdatedAt
	r.s.t.chains[c.ID] = e
	return nil
}

func (r memChains) IncrementOutlets(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.t.chains[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.TotalOutlets++
	r.s.t.chains[id] = c
	return nil
}

func (r memChains) RenewPlan(_ context.Context, id string, rn entity.PlanRenewal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.t.chains[id]
	if !ok || c.PendingActivation || !sameTime(c.PlanEndDate, rn.PreviousEnd) {
		return domain.ErrConflict
	}
	start := rn.PlanStartDate
	c.PlanID, c.PlanStartDate, c.PlanEndDate, c.UpdatedAt = rn.PlanID, &start, rn.PlanEndDate, rn.RenewedAt
	r.s.t.chains[id] = c
	return nil
}

func (r memChains) SetActive(_ context.Context, id string, active bool, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.t.chains[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.IsActive, c.UpdatedAt = active, at
	r.s.t.chains[id] = c
	return nil
}

// sameTime compara fines de plan como IS NOT DISTINCT FROM.
func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// ─── links ────────────────────────────────────────────────────────────────────

type memLinks struct{ s *MemStore }

func (r memLinks) Create(_ context.Context, l *entity.ProfileLink) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailLinkCreate != nil {
		return r.s.FailLinkCreate
	}
	if _, ok := r.s.t.links[l.IdentityRef]; ok {
		return domain.ErrDuplicateIdentity
	}
	for _, e := range r.s.t.links {
		if e.Kind == l.Kind && e.ProfileID == l.ProfileID {
			return domain.ErrDuplicateIdentity
		}
	}
	r.s.t.links[l.IdentityRef] = *l
	return nil
}

func (r memLinks) GetByIdentity(_ context.Context, identityRef string) (*entity.ProfileLink, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailReads != nil {
		return nil, r.s.FailReads
	}
	l, ok := r.s.t.links[identityRef]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

// ─── tokens ───────────────────────────────────────────────────────────────────

type memTokens struct{ s *MemStore }

func (r memTokens) Create(_ context.Context, t *entity.InvitationToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.t.tokens[t.Token]; ok {
		return domain.ErrDuplicate
	}
	r.s.t.tokens[t.Token] = *t
	return nil
}

func (r memTokens) GetByToken(_ context.Context, token string) (*entity.InvitationToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailReads != nil {
		return nil, r.s.FailReads
	}
	t, ok := r.s.t.tokens[token]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r memTokens) GetByTarget(_ context.Context, kind entity.ProfileKind, targetID string) (*entity.InvitationToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.t.tokens {
		if t.TargetKind == kind && t.TargetID == targetID {
			c := t
			return &c, nil
		}
	}
	return nil, nil
}

func (r memTokens) Consume(_ context.Context, token, consumedBy string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.t.tokens[token]
	if !ok || t.Consumed {
		return domain.ErrTokenAlreadyConsumed
	}
	t.Consumed, t.ConsumedBy, t.ConsumedAt = true, consumedBy, &at
	r.s.t.tokens[token] = t
	return nil
}

// ─── plans ────────────────────────────────────────────────────────────────────

type memPlans struct{ s *MemStore }

func (r memPlans) Create(_ context.Context, p *entity.PlanType) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, e := range r.s.plans {
		if strings.EqualFold(e.Name, p.Name) {
			return domain.ErrDuplicate
		}
	}
	r.s.plans[p.ID] = *p
	return nil
}

func (r memPlans) GetByID(_ context.Context, id string) (*entity.PlanType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.plans[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r memPlans) List(_ context.Context, onlyActive bool) ([]*entity.PlanType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entity.PlanType, 0, len(r.s.plans))
	for _, p := range r.s.plans {
		if onlyActive && !p.IsActive {
			continue
		}
		c := p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ─── orphans ──────────────────────────────────────────────────────────────────

type memOrphans struct{ s *MemStore }

func (r memOrphans) Create(_ context.Context, o *entity.OrphanRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.FailOrphanCreate != nil {
		return r.s.FailOrphanCreate
	}
	r.s.orphans[o.ID] = *o
	return nil
}

func (r memOrphans) ListUnresolved(_ context.Context, limit int) ([]*entity.OrphanRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*entity.OrphanRecord, 0)
	for _, o := range r.s.orphans {
		if o.ResolvedAt == nil {
			c := o
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r memOrphans) MarkResolved(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orphans[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.ResolvedAt = &at
	r.s.orphans[id] = o
	return nil
}

func (r memOrphans) RecordAttempt(_ context.Context, id, lastError string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orphans[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.Attempts++
	o.LastError = lastError
	r.s.orphans[id] = o
	return nil
}

var _ repository.ProfileTxRunner = (*MemStore)(nil)
