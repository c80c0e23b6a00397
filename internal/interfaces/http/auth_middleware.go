package http

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/kds-identity-api/internal/application/dto"
	"github.com/jhoicas/kds-identity-api/internal/application/identity"
)

// Locals keys en Fiber.
const (
	LocalPrincipal  = "principal"
	LocalIdentityID = "identity_id"
)

// Authorizer valida el access token y resuelve la identidad con su perfil.
type Authorizer interface {
	Authorize(ctx context.Context, accessToken string) (*identity.Principal, error)
}

// AuthMiddleware valida el Bearer Token contra el proveedor de identidad y carga el principal en c.Locals.
func AuthMiddleware(auth Authorizer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Kind: KindUnauthorized, Message: "Authorization header requerido"})
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Kind: KindUnauthorized, Message: "formato: Bearer <token>"})
		}
		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Kind: KindUnauthorized, Message: "token vacío"})
		}
		principal, err := auth.Authorize(c.UserContext(), tokenString)
		if err != nil {
			return respondError(c, err)
		}
		c.Locals(LocalPrincipal, principal)
		c.Locals(LocalIdentityID, principal.IdentityID)
		return c.Next()
	}
}

// RequireAdmin solo deja pasar principales con perfil de administrador. Va después de AuthMiddleware.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := GetPrincipal(c)
		if p == nil || !p.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Kind: KindForbidden, Message: "se requiere un perfil de administrador"})
		}
		return c.Next()
	}
}

// GetPrincipal devuelve el principal del contexto (después del middleware de auth).
func GetPrincipal(c *fiber.Ctx) *identity.Principal {
	p, _ := c.Locals(LocalPrincipal).(*identity.Principal)
	return p
}

// GetIdentityID devuelve el id de la identidad autenticada.
func GetIdentityID(c *fiber.Ctx) string {
	s, _ := c.Locals(LocalIdentityID).(string)
	return s
}
