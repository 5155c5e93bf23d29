package delegation

import (
	"go-hr/internal/common/apperrors"
	"go-hr/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type DelegationController struct {
	Service DelegationService
}

func NewDelegationController(service DelegationService) *DelegationController {
	return &DelegationController{Service: service}
}

// Create godoc
// @Summary Delegate the caller's approvals for a time window
// @Tags delegations
// @Accept json
// @Produce json
// @Param delegation body DelegateSetting true "Delegation window"
// @Success 201 {object} DelegateSetting
// @Router /api/delegations [post]
func (c *DelegationController) Create(ctx *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	var input DelegateSetting
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	input.UserID = actor.ID

	if err := c.Service.Create(ctx.UserContext(), &input); err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(input)
}

// List godoc
// @Summary The caller's delegations
// @Tags delegations
// @Produce json
// @Success 200 {array} DelegateSetting
// @Router /api/delegations [get]
func (c *DelegationController) List(ctx *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	settings, err := c.Service.ListForUser(ctx.UserContext(), actor.ID)
	if err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.JSON(settings)
}

// Revoke godoc
// @Summary Deactivate one of the caller's delegations
// @Tags delegations
// @Param id path string true "Delegation ID"
// @Success 204 {object} nil "No Content"
// @Router /api/delegations/{id} [delete]
func (c *DelegationController) Revoke(ctx *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	if err := c.Service.Revoke(ctx.UserContext(), ctx.Params("id"), actor.ID); err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}
