package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jhoicas/kds-identity-api/internal/application/ports"
	"github.com/jhoicas/kds-identity-api/internal/domain"
	"github.com/jhoicas/kds-identity-api/internal/domain/entity"
)

// Verificar en tiempo de compilación que AuthClient implementa IdentityStore.
var _ ports.IdentityStore = (*AuthClient)(nil)

const maxResponseBytes = 64 * 1024

// AuthClient adaptador de IdentityStore sobre la API REST de Supabase Auth (GoTrue).
// Los endpoints /admin usan la service key; password grant y refresh usan la anon key.
type AuthClient struct {
	baseURL    string
	serviceKey string
	anonKey    string
	httpClient *http.Client
}

// NewAuthClient construye el adaptador. baseURL es SUPABASE_URL sin barra final.
// El timeout de red es un tope; los orquestadores imponen context.WithTimeout por llamada.
func NewAuthClient(baseURL, serviceKey, anonKey string) *AuthClient {
	return &AuthClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

// ── Estructuras del protocolo GoTrue ─────────────────────────────────────────

type gotrueUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
	CreatedAt    time.Time      `json:"created_at"`
}

type gotrueSession struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	TokenType    string     `json:"token_type"`
	ExpiresIn    int64      `json:"expires_in"`
	ExpiresAt    int64      `json:"expires_at"`
	User         gotrueUser `json:"user"`
}

type gotrueError struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e gotrueError) text() string {
	parts := []string{e.ErrorCode, e.Error, e.Msg, e.Message, e.ErrorDescription}
	if s, ok := e.Code.(string); ok {
		parts = append(parts, s)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// ── Implementación del puerto ─────────────────────────────────────────────────

// Create crea la identidad con email confirmado y la metadata dada.
func (c *AuthClient) Create(ctx context.Context, email, credential string, metadata map[string]string) (string, error) {
	payload := map[string]any{
		"email":         email,
		"password":      credential,
		"email_confirm": true,
		"user_metadata": metadata,
	}
	var user gotrueUser
	if err := c.do(ctx, http.MethodPost, "/auth/v1/admin/users", c.serviceKey, true, payload, &user); err != nil {
		return "", err
	}
	if user.ID == "" {
		return "", fmt.Errorf("%w: supabase: respuesta sin id de usuario", domain.ErrUpstreamRejected)
	}
	return user.ID, nil
}

// Authenticate usa el password grant. Cualquier 400/401 se reporta como ErrInvalidCredentials.
func (c *AuthClient) Authenticate(ctx context.Context, email, credential string) (string, *entity.Session, error) {
	var sess gotrueSession
	payload := map[string]string{"email": email, "password": credential}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", c.anonKey, false, payload, &sess); err != nil {
		return "", nil, credentialErr(err)
	}
	return sess.User.ID, toSession(sess), nil
}

// UpdateMetadata reemplaza las claves dadas en user_metadata; GoTrue fusiona el resto.
func (c *AuthClient) UpdateMetadata(ctx context.Context, identityID string, metadata map[string]string) error {
	payload := map[string]any{"user_metadata": metadata}
	return c.do(ctx, http.MethodPut, "/auth/v1/admin/users/"+url.PathEscape(identityID), c.serviceKey, true, payload, nil)
}

// Delete elimina la identidad. 404 → domain.ErrNotFound.
func (c *AuthClient) Delete(ctx context.Context, identityID string) error {
	return c.do(ctx, http.MethodDelete, "/auth/v1/admin/users/"+url.PathEscape(identityID), c.serviceKey, true, nil, nil)
}

// FindByEmail filtra la lista de administración y exige coincidencia exacta del email.
func (c *AuthClient) FindByEmail(ctx context.Context, email string) (*entity.Identity, error) {
	var page struct {
		Users []gotrueUser `json:"users"`
	}
	path := "/auth/v1/admin/users?per_page=50&filter=" + url.QueryEscape(email)
	if err := c.do(ctx, http.MethodGet, path, c.serviceKey, true, nil, &page); err != nil {
		return nil, err
	}
	for _, u := range page.Users {
		if strings.EqualFold(u.Email, email) {
			ident := toIdentity(u)
			return &ident, nil
		}
	}
	return nil, nil
}

// Refresh intercambia el refresh token por una sesión nueva.
func (c *AuthClient) Refresh(ctx context.Context, refreshToken string) (*entity.Session, error) {
	var sess gotrueSession
	payload := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", c.anonKey, false, payload, &sess); err != nil {
		return nil, credentialErr(err)
	}
	return toSession(sess), nil
}

// Verify consulta /user con el token del cliente; GoTrue valida firma y expiración.
func (c *AuthClient) Verify(ctx context.Context, accessToken string) (*entity.Identity, error) {
	var user gotrueUser
	if err := c.request(ctx, http.MethodGet, "/auth/v1/user", c.anonKey, accessToken, nil, &user); err != nil {
		return nil, credentialErr(err)
	}
	ident := toIdentity(user)
	return &ident, nil
}

// ── HTTP ─────────────────────────────────────────────────────────────────────

func (c *AuthClient) do(ctx context.Context, method, path, key string, admin bool, payload, out any) error {
	bearer := ""
	if admin {
		bearer = key
	}
	return c.request(ctx, method, path, key, bearer, payload, out)
}

func (c *AuthClient) request(ctx context.Context, method, path, apiKey, bearer string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("supabase: serializar request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("supabase: crear HTTP request: %w", err)
	}
	req.Header.Set("apikey", apiKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil || isTimeout(err) {
			return fmt.Errorf("%w: supabase %s %s: %v", domain.ErrUpstreamTimeout, method, path, err)
		}
		return fmt.Errorf("%w: supabase %s %s: %v", domain.ErrUpstreamRejected, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: supabase: leer respuesta: %v", domain.ErrUpstreamTimeout, err)
		}
		return fmt.Errorf("%w: supabase: leer respuesta: %v", domain.ErrUpstreamRejected, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusErr(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: supabase: deserializar respuesta: %v", domain.ErrUpstreamRejected, err)
	}
	return nil
}

// httpStatusError conserva el código para que credentialErr pueda reclasificarlo.
type httpStatusError struct {
	status int
	kind   error
	detail string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("%v: supabase HTTP %d: %s", e.kind, e.status, e.detail)
}

func (e *httpStatusError) Unwrap() error { return e.kind }

// statusErr traduce la respuesta de error de GoTrue a la taxonomía de domain.
func statusErr(status int, raw []byte) error {
	var ge gotrueError
	_ = json.Unmarshal(raw, &ge)
	text := ge.text()
	detail := strings.TrimSpace(ge.Msg + " " + ge.Message + " " + ge.ErrorDescription)
	if detail == "" {
		detail = http.StatusText(status)
	}

	kind := domain.ErrUpstreamRejected
	switch {
	case strings.Contains(text, "email_exists"), strings.Contains(text, "already registered"),
		strings.Contains(text, "already been registered"), strings.Contains(text, "user_already_exists"):
		kind = domain.ErrDuplicateIdentity
	case strings.Contains(text, "weak_password"), strings.Contains(text, "password should"):
		kind = domain.ErrWeakCredential
	case strings.Contains(text, "invalid_grant"), strings.Contains(text, "invalid_credentials"),
		strings.Contains(text, "invalid login credentials"):
		kind = domain.ErrInvalidCredentials
	case status == http.StatusNotFound || strings.Contains(text, "user_not_found"):
		kind = domain.ErrNotFound
	case status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout:
		kind = domain.ErrUpstreamTimeout
	}
	return &httpStatusError{status: status, kind: kind, detail: detail}
}

// credentialErr en los flujos de sesión un 400/401/403 no clasificado es credencial inválida.
func credentialErr(err error) error {
	var se *httpStatusError
	if errors.As(err, &se) && errors.Is(se.kind, domain.ErrUpstreamRejected) {
		switch se.status {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return domain.ErrInvalidCredentials
		}
	}
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrInvalidCredentials
	}
	return err
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func toIdentity(u gotrueUser) entity.Identity {
	meta := make(map[string]string, len(u.UserMetadata))
	for k, v := range u.UserMetadata {
		switch val := v.(type) {
		case string:
			meta[k] = val
		case nil:
		default:
			meta[k] = fmt.Sprint(val)
		}
	}
	return entity.Identity{ID: u.ID, Email: strings.ToLower(u.Email), Metadata: meta, CreatedAt: u.CreatedAt}
}

func toSession(s gotrueSession) *entity.Session {
	exp := time.Now().Add(time.Duration(s.ExpiresIn) * time.Second)
	if s.ExpiresAt > 0 {
		exp = time.Unix(s.ExpiresAt, 0)
	}
	tokenType := strings.ToLower(s.TokenType)
	if tokenType == "" {
		tokenType = "bearer"
	}
	return &entity.Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    tokenType,
		ExpiresAt:    exp.UTC(),
	}
}
