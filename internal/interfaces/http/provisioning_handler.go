package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/kds-identity-api/internal/application/dto"
	"github.com/jhoicas/kds-identity-api/internal/application/provisioning"
)

// ProvisioningHandler planes, outlets, cadenas y licencias.
type ProvisioningHandler struct {
	uc *provisioning.UseCase
}

// NewProvisioningHandler construye el handler.
func NewProvisioningHandler(uc *provisioning.UseCase) *ProvisioningHandler {
	return &ProvisioningHandler{uc: uc}
}

// CreatePlan godoc
// @Summary      Crear plan
// @Tags         plans
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  dto.CreatePlanRequest  true  "datos del plan"
// @Success      201   {object}  dto.PlanResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /plans [post]
func (h *ProvisioningHandler) CreatePlan(c *fiber.Ctx) error {
	var in dto.CreatePlanRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.CreatePlan(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListPlans godoc
// @Summary      Listar planes
// @Tags         plans
// @Produce      json
// @Security     BearerAuth
// @Param        active  query  bool  false  "solo activos"
// @Success      200   {array}  dto.PlanResponse
// @Router       /plans [get]
func (h *ProvisioningHandler) ListPlans(c *fiber.Ctx) error {
	out, err := h.uc.ListPlans(c.UserContext(), c.QueryBool("active", false))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// CreateOutlet godoc
// @Summary      Crear outlet con su licencia
// @Tags         outlets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  dto.CreateOutletRequest  true  "datos del outlet"
// @Success      201   {object}  dto.OutletResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /outlets [post]
func (h *ProvisioningHandler) CreateOutlet(c *fiber.Ctx) error {
	var in dto.CreateOutletRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.CreateOutlet(c.UserContext(), createdBy(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListOutlets godoc
// @Summary      Listar outlets
// @Tags         outlets
// @Produce      json
// @Security     BearerAuth
// @Param        chain_id  query  string  false  "filtrar por cadena"
// @Param        limit     query  int     false  "límite (1-100)"
// @Param        offset    query  int     false  "desplazamiento"
// @Success      200   {object}  dto.OutletListResponse
// @Router       /outlets [get]
func (h *ProvisioningHandler) ListOutlets(c *fiber.Ctx) error {
	page := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	out, err := h.uc.ListOutlets(c.UserContext(), c.Query("chain_id"), page)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// GetOutlet godoc
// @Summary      Obtener outlet
// @Tags         outlets
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "ID del outlet"
// @Success      200  {object}  dto.OutletResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /outlets/{id} [get]
func (h *ProvisioningHandler) GetOutlet(c *fiber.Ctx) error {
	out, err := h.uc.GetOutlet(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// LicenseSheet godoc
// @Summary      Hoja de licencia en PDF
// @Tags         outlets
// @Produce      application/pdf
// @Security     BearerAuth
// @Param        id   path  string  true  "ID del outlet"
// @Success      200  {file}  binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /outlets/{id}/license.pdf [get]
func (h *ProvisioningHandler) LicenseSheet(c *fiber.Ctx) error {
	id := c.Params("id")
	pdf, err := h.uc.LicenseSheetPDF(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="licencia-`+id+`.pdf"`)
	return c.Send(pdf)
}

// CreateChain godoc
// @Summary      Crear cadena con licencia maestra
// @Tags         chains
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body  dto.CreateChainRequest  true  "datos de la cadena"
// @Success      201   {object}  dto.ChainResponse
// @Router       /chains [post]
func (h *ProvisioningHandler) CreateChain(c *fiber.Ctx) error {
	var in dto.CreateChainRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.CreateChain(c.UserContext(), createdBy(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetChain godoc
// @Summary      Obtener cadena
// @Tags         chains
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string  true  "ID de la cadena"
// @Success      200  {object}  dto.ChainResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /chains/{id} [get]
func (h *ProvisioningHandler) GetChain(c *fiber.Ctx) error {
	out, err := h.uc.GetChain(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// ListChains godoc
// @Summary      Listar cadenas
// @Tags         chains
// @Produce      json
// @Security     BearerAuth
// @Param        limit     query  int     false  "límite (1-100)"
// @Param        offset    query  int     false  "desplazamiento"
// @Success      200   {object}  dto.ChainListResponse
// @Router       /chains [get]
func (h *ProvisioningHandler) ListChains(c *fiber.Ctx) error {
	page := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	out, err := h.uc.ListChains(c.UserContext(), page)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// RenewOutletPlan godoc
// @Summary      Renovar el plan de un outlet
// @Tags         outlets
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  string                true  "ID del outlet"
// @Param        body  body  dto.RenewPlanRequest  true  "plan y monto pagado"
// @Success      200   {object}  dto.RenewalResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /outlets/{id}/renew [post]
func (h *ProvisioningHandler) RenewOutletPlan(c *fiber.Ctx) error {
	var in dto.RenewPlanRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.RenewOutletPlan(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// DeactivateOutlet godoc
// @Summary      Desactivar outlet
// @Tags         outlets
// @Security     BearerAuth
// @Param        id   path  string  true  "ID del outlet"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /outlets/{id} [delete]
func (h *ProvisioningHandler) DeactivateOutlet(c *fiber.Ctx) error {
	if err := h.uc.DeactivateOutlet(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// RenewChainPlan godoc
// @Summary      Renovar el plan de una cadena
// @Tags         chains
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  string                true  "ID de la cadena"
// @Param        body  body  dto.RenewPlanRequest  true  "plan y monto pagado"
// @Success      200   {object}  dto.RenewalResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /chains/{id}/renew [post]
func (h *ProvisioningHandler) RenewChainPlan(c *fiber.Ctx) error {
	var in dto.RenewPlanRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.RenewChainPlan(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// DeactivateChain godoc
// @Summary      Desactivar cadena
// @Tags         chains
// @Security     BearerAuth
// @Param        id   path  string  true  "ID de la cadena"
// @Success      204
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /chains/{id} [delete]
func (h *ProvisioningHandler) DeactivateChain(c *fiber.Ctx) error {
	if err := h.uc.DeactivateChain(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// VerifyLicense godoc
// @Summary      Verificar licencia antes de activar
// @Tags         licenses
// @Produce      json
// @Param        token  path  string  true  "clave de licencia"
// @Success      200  {object}  dto.TokenVerificationResponse
// @Router       /licenses/{token}/verify [get]
func (h *ProvisioningHandler) VerifyLicense(c *fiber.Ctx) error {
	out, err := h.uc.VerifyToken(c.UserContext(), c.Params("token"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// createdBy id del perfil admin que ejecuta la operación.
func createdBy(c *fiber.Ctx) string {
	if p := GetPrincipal(c); p != nil && p.Profile != nil {
		return p.Profile.ID()
	}
	return ""
}
