package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/kds-identity-api/internal/application/dto"
	"github.com/jhoicas/kds-identity-api/internal/domain"
)

// Tipos de error estables expuestos en {error_kind, message}.
const (
	KindValidation             = "VALIDATION"
	KindInvalidBody            = "INVALID_BODY"
	KindIdentityCreationFailed = "IDENTITY_CREATION_FAILED"
	KindDuplicateIdentity      = "DUPLICATE_IDENTITY"
	KindWeakCredential         = "WEAK_CREDENTIAL"
	KindProfileWriteFailed     = "PROFILE_WRITE_FAILED"
	KindTokenNotFound          = "TOKEN_NOT_FOUND"
	KindTokenAlreadyConsumed   = "TOKEN_ALREADY_CONSUMED"
	KindTokenExpired           = "TOKEN_EXPIRED"
	KindInvalidCredentials     = "INVALID_CREDENTIALS"
	KindProfileNotFound        = "PROFILE_NOT_FOUND"
	KindProfileInactive        = "PROFILE_INACTIVE"
	KindPlanExpired            = "PLAN_EXPIRED"
	KindUnauthorized           = "UNAUTHORIZED"
	KindForbidden              = "FORBIDDEN"
	KindNotFound               = "NOT_FOUND"
	KindDuplicate              = "DUPLICATE"
	KindConflict               = "CONFLICT"
	KindUpstreamTimeout        = "UPSTREAM_TIMEOUT"
	KindUpstreamRejected       = "UPSTREAM_REJECTED"
	KindInternal               = "INTERNAL"
)

type errorRule struct {
	target  error
	status  int
	kind    string
	message string
}

// errorRules en orden: la primera coincidencia gana, así un duplicado envuelto en
// ErrIdentityCreationFailed o ErrProfileWriteFailed se informa como DUPLICATE_IDENTITY.
var errorRules = []errorRule{
	{domain.ErrDuplicateIdentity, fiber.StatusConflict, KindDuplicateIdentity, "el email ya tiene una cuenta"},
	{domain.ErrWeakCredential, fiber.StatusUnprocessableEntity, KindWeakCredential, "la contraseña no cumple la política de seguridad"},
	{domain.ErrTokenNotFound, fiber.StatusNotFound, KindTokenNotFound, "licencia no encontrada"},
	{domain.ErrTokenAlreadyConsumed, fiber.StatusConflict, KindTokenAlreadyConsumed, "la licencia ya fue utilizada"},
	{domain.ErrTokenExpired, fiber.StatusGone, KindTokenExpired, "la licencia está vencida"},
	{domain.ErrInvalidCredentials, fiber.StatusUnauthorized, KindInvalidCredentials, "email o contraseña inválidos"},
	{domain.ErrProfileNotFound, fiber.StatusNotFound, KindProfileNotFound, "la cuenta no tiene un perfil asociado"},
	{domain.ErrProfileInactive, fiber.StatusForbidden, KindProfileInactive, "el perfil no está activo"},
	{domain.ErrPlanExpired, fiber.StatusForbidden, KindPlanExpired, "el plan contratado está vencido"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, KindUnauthorized, "no autenticado"},
	{domain.ErrForbidden, fiber.StatusForbidden, KindForbidden, "acceso denegado"},
	{domain.ErrNotFound, fiber.StatusNotFound, KindNotFound, "recurso no encontrado"},
	{domain.ErrProfileWriteFailed, fiber.StatusServiceUnavailable, KindProfileWriteFailed, "no se pudo guardar el perfil, intente de nuevo"},
	{domain.ErrUpstreamTimeout, fiber.StatusGatewayTimeout, KindUpstreamTimeout, "el servicio de identidad no respondió a tiempo"},
	{domain.ErrIdentityCreationFailed, fiber.StatusBadGateway, KindIdentityCreationFailed, "no se pudo crear la cuenta"},
	{domain.ErrUpstreamRejected, fiber.StatusBadGateway, KindUpstreamRejected, "el servicio externo rechazó la operación"},
	{domain.ErrDuplicate, fiber.StatusConflict, KindDuplicate, "el recurso ya existe"},
	{domain.ErrConflict, fiber.StatusConflict, KindConflict, "conflicto con el estado actual"},
}

// classify devuelve status, kind y mensaje. Solo ErrInvalidInput expone el texto del error;
// el resto usa mensajes fijos para que ningún detalle del almacén llegue al cliente.
func classify(err error) (int, dto.ErrorResponse) {
	if errors.Is(err, domain.ErrInvalidInput) {
		msg := strings.TrimPrefix(err.Error(), domain.ErrInvalidInput.Error()+": ")
		return fiber.StatusBadRequest, dto.ErrorResponse{Kind: KindValidation, Message: msg}
	}
	for _, r := range errorRules {
		if errors.Is(err, r.target) {
			return r.status, dto.ErrorResponse{Kind: r.kind, Message: r.message}
		}
	}
	return fiber.StatusInternalServerError, dto.ErrorResponse{Kind: KindInternal, Message: "error interno"}
}

// respondError escribe el error clasificado. Los 5xx se registran con el error completo.
func respondError(c *fiber.Ctx, err error) error {
	status, body := classify(err)
	if status >= fiber.StatusInternalServerError {
		logFrom(c).Error().Err(err).Str("error_kind", body.Kind).Str("path", c.Path()).Msg("petición fallida")
	}
	return c.Status(status).JSON(body)
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Kind: KindInvalidBody, Message: "cuerpo inválido"})
}
