package dto

import "time"

// DisplayAttributes datos descriptivos que se guardan en el perfil y en la metadata de la identidad.
type DisplayAttributes struct {
	FullName string `json:"full_name" validate:"required,min=2,max=255"`
	Phone    string `json:"phone,omitempty" validate:"omitempty,min=10,max=20"`
}

// RegisterRequest alta de administrador: crea identidad + perfil admin.
type RegisterRequest struct {
	Email             string            `json:"email" validate:"required,email"`
	Credential        string            `json:"credential" validate:"required,min=8"`
	DisplayAttributes DisplayAttributes `json:"display_attributes"`
}

// ActivateRequest activación de un outlet o cadena preexistente con su licencia.
type ActivateRequest struct {
	InvitationToken   string            `json:"invitation_token" validate:"required"`
	Email             string            `json:"email" validate:"required,email"`
	Credential        string            `json:"credential" validate:"required,min=8"`
	DisplayAttributes DisplayAttributes `json:"display_attributes"`
}

// LoginRequest email + credencial.
type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Credential string `json:"credential" validate:"required"`
}

// RefreshRequest renovación de sesión.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// UpdateProfileRequest cambios parciales de los datos descriptivos del perfil propio.
type UpdateProfileRequest struct {
	FullName *string `json:"full_name,omitempty" validate:"omitempty,min=2,max=255"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,min=10,max=20"`
}

// ProfileResponse vista unificada de un perfil. Los campos vacíos se omiten según el tipo.
type ProfileResponse struct {
	Kind        string     `json:"kind"`
	ID          string     `json:"id"`
	IdentityRef string     `json:"identity_ref,omitempty"`
	Email       string     `json:"email,omitempty"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone,omitempty"`
	IsActive    bool       `json:"is_active"`
	ChainID     string     `json:"chain_id,omitempty"`
	PlanID      string     `json:"plan_id,omitempty"`
	PlanEndDate *time.Time `json:"plan_end_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// IdentityProfileResponse salida de registro y activación.
type IdentityProfileResponse struct {
	IdentityID string          `json:"identity_id"`
	Profile    ProfileResponse `json:"profile"`
}

// SessionResponse tokens emitidos por el proveedor.
type SessionResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// LoginResponse perfil resuelto + sesión.
type LoginResponse struct {
	IdentityID   string          `json:"identity_id"`
	Profile      ProfileResponse `json:"profile"`
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type"`
	ExpiresAt    time.Time       `json:"expires_at"`
}

// ReconcileReport resultado de una pasada del reconciliador de huérfanos.
type ReconcileReport struct {
	Scanned  int `json:"scanned"`
	Resolved int `json:"resolved"`
	Failed   int `json:"failed"`
}
