package flow

import (
	"go-hr/internal/common/apperrors"
	"go-hr/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type FlowController struct {
	Service FlowService
}

func NewFlowController(service FlowService) *FlowController {
	return &FlowController{Service: service}
}

// CreateFlow godoc
// @Summary Create an approval flow
// @Tags flows
// @Accept json
// @Produce json
// @Param flow body ApprovalFlowDefinition true "Flow definition"
// @Success 201 {object} ApprovalFlowDefinition
// @Failure 400 {object} map[string]string "Invalid flow"
// @Failure 409 {object} map[string]string "Overlapping flow"
// @Router /api/flows [post]
func (c *FlowController) CreateFlow(ctx *fiber.Ctx) error {
	var input ApprovalFlowDefinition
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.Service.CreateFlow(ctx.UserContext(), &input); err != nil {
		return apperrors.Respond(ctx, err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(input)
}

// UpdateFlow godoc
// @Summary Update an approval flow
// @Description Requests already created keep the steps they were resolved with.
// @Tags flows
// @Accept json
// @Produce json
// @Param id path string true "Flow ID"
// @Param flow body ApprovalFlowDefinition true "Flow definition"
// @Success 200 {object} ApprovalFlowDefinition
// @Router /api/flows/{id} [put]
func (c *FlowController) UpdateFlow(ctx *fiber.Ctx) error {
	var input ApprovalFlowDefinition
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := c.Service.UpdateFlow(ctx.UserContext(), ctx.Params("id"), &input); err != nil {
		return apperrors.Respond(ctx, err)
	}

	return ctx.JSON(input)
}

// DeleteFlow godoc
// @Summary Delete an approval flow
// @Tags flows
// @Param id path string true "Flow ID"
// @Success 204 {object} nil "No Content"
// @Router /api/flows/{id} [delete]
func (c *FlowController) DeleteFlow(ctx *fiber.Ctx) error {
	if err := c.Service.DeleteFlow(ctx.UserContext(), ctx.Params("id")); err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

// GetFlow godoc
// @Summary Get an approval flow
// @Tags flows
// @Produce json
// @Param id path string true "Flow ID"
// @Success 200 {object} ApprovalFlowDefinition
// @Failure 404 {object} map[string]string "Flow not found"
// @Router /api/flows/{id} [get]
func (c *FlowController) GetFlow(ctx *fiber.Ctx) error {
	flow, err := c.Service.GetFlow(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.JSON(flow)
}

// ListFlows godoc
// @Summary List approval flows
// @Tags flows
// @Produce json
// @Param category query string false "Request category"
// @Success 200 {array} ApprovalFlowDefinition
// @Router /api/flows [get]
func (c *FlowController) ListFlows(ctx *fiber.Ctx) error {
	flows, err := c.Service.ListFlows(ctx.UserContext(), ctx.Query("category"))
	if err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.JSON(flows)
}

type previewInput struct {
	Category    string                 `json:"category"`
	RequesterID string                 `json:"requester_id"`
	Details     map[string]interface{} `json:"details"`
}

// PreviewRoute godoc
// @Summary Resolve the approval route a request would receive
// @Tags flows
// @Accept json
// @Produce json
// @Param input body previewInput true "Request category and details"
// @Success 200 {object} ResolvedApprovalRoute
// @Router /api/flows/preview [post]
func (c *FlowController) PreviewRoute(ctx *fiber.Ctx) error {
	var input previewInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if input.RequesterID == "" {
		if actor, ok := middleware.CurrentActor(ctx); ok {
			input.RequesterID = actor.ID
		}
	}

	route, err := c.Service.Preview(ctx.UserContext(), input.Category, input.RequesterID, input.Details)
	if err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.JSON(route)
}
