package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/kds-identity-api/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *AuthClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewAuthClient(srv.URL+"/", "service-key", "anon-key")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ──────────────────────────────────────────────────────────────────────────────
// Create
// ──────────────────────────────────────────────────────────────────────────────

func TestCreate_SendsAdminRequest(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/admin/users", r.URL.Path)
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]any{"id": "u-1", "email": "a@b.co"})
	})

	id, err := c.Create(context.Background(), "a@b.co", "Secret123", map[string]string{"role_kind": "admin"})
	require.NoError(t, err)
	assert.Equal(t, "u-1", id)
	assert.Equal(t, true, got["email_confirm"])
	assert.Equal(t, map[string]any{"role_kind": "admin"}, got["user_metadata"])
}

func TestCreate_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   map[string]any
		want   error
	}{
		{"email existente", 422, map[string]any{"error_code": "email_exists", "msg": "A user with this email address has already been registered"}, domain.ErrDuplicateIdentity},
		{"mensaje antiguo", 400, map[string]any{"msg": "User already registered"}, domain.ErrDuplicateIdentity},
		{"contraseña débil", 422, map[string]any{"error_code": "weak_password", "msg": "Password should be at least 8 characters"}, domain.ErrWeakCredential},
		{"error interno", 500, map[string]any{"msg": "database error"}, domain.ErrUpstreamRejected},
		{"gateway timeout", 504, map[string]any{}, domain.ErrUpstreamTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, tc.status, tc.body)
			})
			_, err := c.Create(context.Background(), "a@b.co", "Secret123", nil)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreate_ContextDeadlineIsTimeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		<-release
		writeJSON(w, http.StatusOK, map[string]any{"id": "tarde"})
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Create(ctx, "a@b.co", "Secret123", nil)
	assert.ErrorIs(t, err, domain.ErrUpstreamTimeout)
}

// ──────────────────────────────────────────────────────────────────────────────
// Sesiones
// ──────────────────────────────────────────────────────────────────────────────

func TestAuthenticate_PasswordGrant(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Empty(t, r.Header.Get("Authorization"), "el password grant no lleva la service key")
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "at", "refresh_token": "rt", "token_type": "bearer",
			"expires_in": 3600, "expires_at": 4102444800,
			"user": map[string]any{"id": "u-1", "email": "a@b.co"},
		})
	})

	id, sess, err := c.Authenticate(context.Background(), "a@b.co", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, "u-1", id)
	assert.Equal(t, "at", sess.AccessToken)
	assert.Equal(t, "rt", sess.RefreshToken)
	assert.Equal(t, time.Unix(4102444800, 0).UTC(), sess.ExpiresAt)
}

func TestAuthenticate_InvalidCredentialsIsUniform(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant", "error_description": "Invalid login credentials"})
	})
	_, _, err := c.Authenticate(context.Background(), "a@b.co", "Wrong123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = c.Refresh(context.Background(), "viejo")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestVerify_UsesClientToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"msg": "invalid JWT"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id": "u-1", "email": "A@B.co",
			"user_metadata": map[string]any{"role_kind": "admin", "legacy": 7},
		})
	})

	ident, err := c.Verify(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", ident.Email)
	assert.Equal(t, "admin", ident.Metadata["role_kind"])
	assert.Equal(t, "7", ident.Metadata["legacy"])

	_, err = c.Verify(context.Background(), "bad")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

// ──────────────────────────────────────────────────────────────────────────────
// Administración
// ──────────────────────────────────────────────────────────────────────────────

func TestDelete_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/auth/v1/admin/users/u-9", r.URL.Path)
		writeJSON(w, http.StatusNotFound, map[string]any{"error_code": "user_not_found", "msg": "User not found"})
	})
	assert.ErrorIs(t, c.Delete(context.Background(), "u-9"), domain.ErrNotFound)
}

func TestFindByEmail_ExactMatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ana@b.co", r.URL.Query().Get("filter"))
		writeJSON(w, http.StatusOK, map[string]any{"users": []map[string]any{
			{"id": "u-1", "email": "mariana@b.co"},
			{"id": "u-2", "email": "ana@b.co", "user_metadata": map[string]any{"registration_nonce": "n-1"}},
		}})
	})

	ident, err := c.FindByEmail(context.Background(), "ana@b.co")
	require.NoError(t, err)
	require.NotNil(t, ident)
	assert.Equal(t, "u-2", ident.ID)
	assert.Equal(t, "n-1", ident.Metadata["registration_nonce"])
}

func TestFindByEmail_NoMatchIsNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"users": []map[string]any{{"id": "u-1", "email": "mariana@b.co"}}})
	})
	ident, err := c.FindByEmail(context.Background(), "ana@b.co")
	assert.NoError(t, err)
	assert.Nil(t, ident)
}

func TestUpdateMetadata(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		var body map[string]map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Ana", body["user_metadata"]["full_name"])
		writeJSON(w, http.StatusOK, map[string]any{"id": "u-1"})
	})
	assert.NoError(t, c.UpdateMetadata(context.Background(), "u-1", map[string]string{"full_name": "Ana"}))
}
