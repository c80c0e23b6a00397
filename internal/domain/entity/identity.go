package entity

import "time"

// Claves de metadata que este servicio guarda en la identidad del proveedor.
const (
	MetaFullName          = "full_name"
	MetaPhone             = "phone"
	MetaUserType          = "user_type"
	MetaRoleKind          = "role_kind"
	MetaProfileID         = "profile_id"
	MetaOutletID          = "outlet_id"
	MetaChainID           = "chain_id"
	MetaLicenseKey        = "license_key"
	MetaRegistrationNonce = "registration_nonce"
)

// Tipos de usuario guardados en metadata (compatibles con cuentas existentes del proveedor).
const (
	UserTypeAdmin       = "admin"
	UserTypeOutletOwner = "outlet_owner"
	UserTypeChainOwner  = "chain_owner"
)

// Identity cuenta con credenciales que pertenece al proveedor externo de autenticación.
// La credencial nunca es legible desde este sistema.
type Identity struct {
	ID        string
	Email     string
	Metadata  map[string]string
	CreatedAt time.Time
}

// Session par de tokens emitido por el proveedor tras autenticar.
type Session struct {
	AccessToken  string
	RefreshToken string
	TokenType    string // "bearer"
	ExpiresAt    time.Time
}
