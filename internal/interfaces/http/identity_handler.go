package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/kds-identity-api/internal/application/dto"
	"github.com/jhoicas/kds-identity-api/internal/application/identity"
)

// IdentityHandler registro, activación, login y perfil propio.
type IdentityHandler struct {
	registration *identity.RegistrationOrchestrator
	activation   *identity.ActivationOrchestrator
	sessions     *identity.SessionOrchestrator
}

// NewIdentityHandler construye el handler de identidad.
func NewIdentityHandler(
	registration *identity.RegistrationOrchestrator,
	activation *identity.ActivationOrchestrator,
	sessions *identity.SessionOrchestrator,
) *IdentityHandler {
	return &IdentityHandler{registration: registration, activation: activation, sessions: sessions}
}

// Register godoc
// @Summary      Registrar administrador
// @Description  Crea la identidad en el proveedor y el perfil admin local. Si el perfil falla, la identidad se compensa.
// @Tags         identity
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterRequest  true  "email, credential, display_attributes"
// @Success      201   {object}  dto.IdentityProfileResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /identity/register [post]
func (h *IdentityHandler) Register(c *fiber.Ctx) error {
	var in dto.RegisterRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.registration.Register(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Activate godoc
// @Summary      Activar outlet o cadena con licencia
// @Tags         identity
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ActivateRequest  true  "invitation_token, email, credential, display_attributes"
// @Success      200   {object}  dto.IdentityProfileResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      410   {object}  dto.ErrorResponse
// @Router       /identity/activate [post]
func (h *IdentityHandler) Activate(c *fiber.Ctx) error {
	var in dto.ActivateRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.activation.Activate(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Login godoc
// @Summary      Iniciar sesión
// @Tags         identity
// @Accept       json
// @Produce      json
// @Param        body  body  dto.LoginRequest  true  "email, credential"
// @Success      200   {object}  dto.LoginResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /identity/login [post]
func (h *IdentityHandler) Login(c *fiber.Ctx) error {
	var in dto.LoginRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.sessions.Login(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Refresh godoc
// @Summary      Renovar sesión
// @Tags         identity
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RefreshRequest  true  "refresh_token"
// @Success      200   {object}  dto.SessionResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /identity/refresh [post]
func (h *IdentityHandler) Refresh(c *fiber.Ctx) error {
	var in dto.RefreshRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.sessions.Refresh(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Me godoc
// @Summary      Perfil propio
// @Tags         identity
// @Produce      json
// @Security     BearerAuth
// @Success      200   {object}  dto.ProfileResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /identity/me [get]
func (h *IdentityHandler) Me(c *fiber.Ctx) error {
	out, err := h.sessions.Me(c.UserContext(), GetIdentityID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// UpdateMe godoc
// @Summary      Actualizar datos del perfil propio
// @Tags         identity
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  dto.UpdateProfileRequest  true  "full_name, phone"
// @Success      200   {object}  dto.ProfileResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /identity/me [patch]
func (h *IdentityHandler) UpdateMe(c *fiber.Ctx) error {
	var in dto.UpdateProfileRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.sessions.UpdateProfile(c.UserContext(), GetIdentityID(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}
