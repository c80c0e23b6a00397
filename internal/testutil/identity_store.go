package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/kds-identity-api/internal/application/ports"
	"github.com/jhoicas/kds-identity-api/internal/domain"
	"github.com/jhoicas/kds-identity-api/internal/domain/entity"
)

type storedIdentity struct {
	entity.Identity
	credential string
}

// FakeIdentityStore proveedor de identidad en memoria. El email es único (como en Supabase).
// Los access tokens tienen la forma "access-<id>" y los refresh "refresh-<id>".
type FakeIdentityStore struct {
	mu     sync.Mutex
	byID   map[string]*storedIdentity
	nextID int

	// CreateErr si no es nil, Create falla sin crear nada.
	CreateErr error
	// TimeoutAfterCreate número de Create que crean la identidad pero responden ErrUpstreamTimeout.
	TimeoutAfterCreate int
	// DeleteErr si no es nil, Delete falla sin borrar.
	DeleteErr error
	// UpdateErr si no es nil, UpdateMetadata falla.
	UpdateErr error

	CreateCalls int
	DeleteCalls int
}

// NewFakeIdentityStore crea un proveedor vacío.
func NewFakeIdentityStore() *FakeIdentityStore {
	return &FakeIdentityStore{byID: map[string]*storedIdentity{}}
}

// Seed crea una identidad directamente y devuelve su id.
func (f *FakeIdentityStore) Seed(email, credential string, meta map[string]string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insert(email, credential, meta)
}

func (f *FakeIdentityStore) insert(email, credential string, meta map[string]string) string {
	f.nextID++
	id := fmt.Sprintf("id-%04d", f.nextID)
	m := make(map[string]string, len(meta))
	for k, v := range meta {
		m[k] = v
	}
	f.byID[id] = &storedIdentity{
		Identity:   entity.Identity{ID: id, Email: strings.ToLower(email), Metadata: m, CreatedAt: time.Now().UTC()},
		credential: credential,
	}
	return id
}

func (f *FakeIdentityStore) findEmail(email string) *storedIdentity {
	for _, s := range f.byID {
		if strings.EqualFold(s.Email, email) {
			return s
		}
	}
	return nil
}

// Count número de identidades existentes.
func (f *FakeIdentityStore) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

// Get devuelve la identidad por id.
func (f *FakeIdentityStore) Get(id string) (entity.Identity, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.byID[id]
	if !ok {
		return entity.Identity{}, false
	}
	return s.Identity, true
}

func (f *FakeIdentityStore) Create(_ context.Context, email, credential string, metadata map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateCalls++
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	if f.findEmail(email) != nil {
		return "", domain.ErrDuplicateIdentity
	}
	id := f.insert(email, credential, metadata)
	if f.TimeoutAfterCreate > 0 {
		f.TimeoutAfterCreate--
		return "", domain.ErrUpstreamTimeout
	}
	return id, nil
}

func (f *FakeIdentityStore) Authenticate(_ context.Context, email, credential string) (string, *entity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.findEmail(email)
	if s == nil || s.credential != credential {
		return "", nil, domain.ErrInvalidCredentials
	}
	return s.ID, session(s.ID), nil
}

func (f *FakeIdentityStore) UpdateMetadata(_ context.Context, identityID string, metadata map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.UpdateErr != nil {
		return f.UpdateErr
	}
	s, ok := f.byID[identityID]
	if !ok {
		return domain.ErrNotFound
	}
	for k, v := range metadata {
		s.Metadata[k] = v
	}
	return nil
}

func (f *FakeIdentityStore) Delete(_ context.Context, identityID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteCalls++
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	if _, ok := f.byID[identityID]; !ok {
		return domain.ErrNotFound
	}
	delete(f.byID, identityID)
	return nil
}

func (f *FakeIdentityStore) FindByEmail(_ context.Context, email string) (*entity.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.findEmail(email)
	if s == nil {
		return nil, nil
	}
	out := s.Identity
	return &out, nil
}

func (f *FakeIdentityStore) Refresh(_ context.Context, refreshToken string) (*entity.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := strings.TrimPrefix(refreshToken, "refresh-")
	if _, ok := f.byID[id]; !ok || id == refreshToken {
		return nil, domain.ErrInvalidCredentials
	}
	return session(id), nil
}

func (f *FakeIdentityStore) Verify(_ context.Context, accessToken string) (*entity.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := strings.TrimPrefix(accessToken, "access-")
	s, ok := f.byID[id]
	if !ok || id == accessToken {
		return nil, domain.ErrInvalidCredentials
	}
	out := s.Identity
	return &out, nil
}

func session(id string) *entity.Session {
	return &entity.Session{
		AccessToken:  "access-" + id,
		RefreshToken: "refresh-" + id,
		TokenType:    "bearer",
		ExpiresAt:    time.Now().Add(time.Hour).UTC(),
	}
}

var _ ports.IdentityStore = (*FakeIdentityStore)(nil)
