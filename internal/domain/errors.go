package domain

import "errors"

// Errores de dominio genéricos (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")
)

// Taxonomía de fallos del flujo identidad ↔ perfil.
// Los orquestadores traducen cualquier error de almacén a uno de estos antes de
// devolverlo; ningún error SQL crudo llega a la capa HTTP.
var (
	// ErrIdentityCreationFailed el proveedor de identidad no creó la cuenta. No se reintenta.
	ErrIdentityCreationFailed = errors.New("no se pudo crear la identidad")
	// ErrDuplicateIdentity email ya registrado o identidad ya vinculada a un perfil.
	// En el alta siempre viaja envuelto junto a ErrIdentityCreationFailed.
	ErrDuplicateIdentity = errors.New("la identidad ya existe")
	// ErrWeakCredential el proveedor rechazó la contraseña.
	ErrWeakCredential = errors.New("la contraseña no cumple la política del proveedor")
	// ErrProfileWriteFailed falló la escritura del perfil local; dispara la compensación.
	ErrProfileWriteFailed = errors.New("no se pudo escribir el perfil")

	ErrTokenNotFound        = errors.New("licencia no encontrada")
	ErrTokenAlreadyConsumed = errors.New("licencia ya utilizada")
	ErrTokenExpired         = errors.New("licencia vencida")

	// ErrInvalidCredentials mismo error para email inexistente y contraseña incorrecta.
	ErrInvalidCredentials = errors.New("email o contraseña inválidos")
	ErrProfileNotFound    = errors.New("la identidad no tiene perfil asociado")
	ErrProfileInactive    = errors.New("el perfil no está activo")
	ErrPlanExpired        = errors.New("el plan del perfil está vencido")

	// ErrUpstreamTimeout la llamada a un almacén superó su timeout; el resultado es desconocido.
	ErrUpstreamTimeout = errors.New("tiempo de espera agotado con el servicio externo")
	// ErrUpstreamRejected el servicio externo respondió con un error no clasificado.
	ErrUpstreamRejected = errors.New("el servicio externo rechazó la operación")
)
