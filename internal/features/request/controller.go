package request

import (
	"strconv"
	"strings"

	"go-hr/internal/common/apperrors"
	"go-hr/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type RequestController struct {
	Service RequestService
}

func NewRequestController(service RequestService) *RequestController {
	return &RequestController{Service: service}
}

func unauthorized(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
}

func badBody(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
}

// CreateRequest godoc
// @Summary Create a draft request
// @Description Resolves the approval route from the flow selected for the category.
// @Tags requests
// @Accept json
// @Produce json
// @Param request body CreateInput true "Request"
// @Success 201 {object} WorkflowRequest
// @Failure 400 {object} map[string]string "Invalid request"
// @Router /api/requests [post]
func (c *RequestController) CreateRequest(ctx *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		return unauthorized(ctx)
	}
	var input CreateInput
	if err := ctx.BodyParser(&input); err != nil {
		return badBody(ctx)
	}

	req, err := c.Service.Create(ctx.UserContext(), actor, input)
	if err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.Status(fiber.StatusCreated).JSON(req)
}

// SubmitRequest godoc
// @Summary Submit a draft for approval
// @Tags requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} WorkflowRequest
// @Router /api/requests/{id}/submit [post]
func (c *RequestController) SubmitRequest(ctx *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		return unauthorized(ctx)
	}
	req, err := c.Service.Submit(ctx.UserContext(), ctx.Params("id"), actor)
	if err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.JSON(req)
}

type actionInput struct {
	StepID         string `json:"step_id"`
	Comment        string `json:"comment"`
	Reason         string `json:"reason"`
	RequireComment bool   `json:"require_comment"`
	DelegateID     string `json:"delegate_id"`
	DelegateName   string `json:"delegate_name"`
}

// ApproveStep godoc
// @Summary Approve a step
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param input body actionInput true "step_id, comment, require_comment"
// @Success 200 {object} WorkflowRequest
// @Failure 409 {object} map[string]string "Concurrent modification"
// @Router /api/requests/{id}/approve [post]
func (c *RequestController) ApproveStep(ctx *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		return unauthorized(ctx)
	}
	var input actionInput
	if err := ctx.BodyParser(&input); err != nil {
		return badBody(ctx)
	}
	req, err := c.Service.Approve(ctx.UserContext(), ctx.Params("id"), input.StepID, actor, input.Comment, input.RequireComment)
	if err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.JSON(req)
}

// RejectStep godoc
// @Summary Reject a step, ending the request
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param input body actionInput true "step_id, reason"
// @Success 200 {object} WorkflowRequest
// @Router /api/requests/{id}/reject [post]
func (c *RequestController) RejectStep(ctx *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		return unauthorized(ctx)
	}
	var input actionInput
	if err := ctx.BodyParser(&input); err != nil {
		return badBody(ctx)
	}
	req, err := c.Service.Reject(ctx.UserContext(), ctx.Params("id"), input.StepID, actor, input.Reason)
	if err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.JSON(req)
}

// DelegateStep godoc
// @Summary Reassign a step to another member
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param input body actionInput true "step_id, delegate_id, delegate_name, reason"
// @Success 200 {object} WorkflowRequest
// @Router /api/requests/{id}/delegate [post]
func (c *RequestController) DelegateStep(ctx *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		return unauthorized(ctx)
	}
	var input actionInput
	if err := ctx.BodyParser(&input); err != nil {
		return badBody(ctx)
	}
	req, err := c.Service.Delegate(ctx.UserContext(), ctx.Params("id"), input.StepID, actor, input.DelegateID, input.DelegateName, input.Reason)
	if err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.JSON(req)
}

// CancelRequest godoc
// @Summary Cancel a request
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} WorkflowRequest
// @Router /api/requests/{id}/cancel [post]
func (c *RequestController) CancelRequest(ctx *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		return unauthorized(ctx)
	}
	var input actionInput
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&input); err != nil {
			return badBody(ctx)
		}
	}
	req, err := c.Service.Cancel(ctx.UserContext(), ctx.Params("id"), actor, input.Reason)
	if err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.JSON(req)
}

// ReturnRequest godoc
// @Summary Send a request back to its requester for revision
// @Tags requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param input body actionInput true "step_id, reason"
// @Success 200 {object} WorkflowRequest
// @Router /api/requests/{id}/return [post]
func (c *RequestController) ReturnRequest(ctx *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		return unauthorized(ctx)
	}
	var input actionInput
	if err := ctx.BodyParser(&input); err != nil {
		return badBody(ctx)
	}
	req, err := c.Service.ReturnForRevision(ctx.UserContext(), ctx.Params("id"), input.StepID, actor, input.Reason)
	if err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.JSON(req)
}

type bulkInput struct {
	Action     string   `json:"action"` // approve or reject
	RequestIDs []string `json:"request_ids"`
	Comment    string   `json:"comment"`
	Reason     string   `json:"reason"`
}

// BulkAction godoc
// @Summary Approve or reject many requests at once
// @Description Only requests whose active step is assigned directly to the caller are acted on.
// @Tags requests
// @Accept json
// @Produce json
// @Param input body bulkInput true "Bulk action"
// @Success 200 {array} BulkResult
// @Router /api/requests/bulk [post]
func (c *RequestController) BulkAction(ctx *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		return unauthorized(ctx)
	}
	var input bulkInput
	if err := ctx.BodyParser(&input); err != nil {
		return badBody(ctx)
	}

	var (
		results []BulkResult
		err     error
	)
	switch input.Action {
	case "approve":
		results, err = c.Service.BulkApprove(ctx.UserContext(), actor, input.RequestIDs, input.Comment)
	case "reject":
		results, err = c.Service.BulkReject(ctx.UserContext(), actor, input.RequestIDs, input.Reason)
	default:
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "action must be approve or reject"})
	}
	if err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.JSON(results)
}

// GetRequest godoc
// @Summary Get a request
// @Tags requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} WorkflowRequest
// @Failure 404 {object} map[string]string "Request not found"
// @Router /api/requests/{id} [get]
func (c *RequestController) GetRequest(ctx *fiber.Ctx) error {
	req, err := c.Service.Get(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.JSON(req)
}

// ListRequests godoc
// @Summary List requests
// @Tags requests
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param category query string false "Category"
// @Param requester_id query string false "Requester"
// @Param approver_id query string false "Approver on any step"
// @Param action_required query bool false "Only requests needing an administrator"
// @Param limit query int false "Max results"
// @Success 200 {array} WorkflowRequest
// @Router /api/requests [get]
func (c *RequestController) ListRequests(ctx *fiber.Ctx) error {
	filter := Filter{
		Category:    ctx.Query("category"),
		RequesterID: ctx.Query("requester_id"),
		ApproverID:  ctx.Query("approver_id"),
	}
	for _, s := range strings.Split(ctx.Query("status"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			filter.Statuses = append(filter.Statuses, Status(s))
		}
	}
	if raw := ctx.Query("action_required"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "action_required must be a boolean"})
		}
		filter.ActionRequired = &v
	}
	filter.Limit = int64(ctx.QueryInt("limit", 0))

	requests, err := c.Service.List(ctx.UserContext(), filter)
	if err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.JSON(requests)
}

// ListMine godoc
// @Summary List the caller's own requests
// @Tags requests
// @Produce json
// @Success 200 {array} WorkflowRequest
// @Router /api/requests/mine [get]
func (c *RequestController) ListMine(ctx *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		return unauthorized(ctx)
	}
	requests, err := c.Service.List(ctx.UserContext(), Filter{RequesterID: actor.ID})
	if err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.JSON(requests)
}

// ListPending godoc
// @Summary List requests waiting on the caller
// @Tags requests
// @Produce json
// @Success 200 {array} WorkflowRequest
// @Router /api/requests/pending [get]
func (c *RequestController) ListPending(ctx *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		return unauthorized(ctx)
	}
	requests, err := c.Service.PendingFor(ctx.UserContext(), actor)
	if err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.JSON(requests)
}

// ListActionRequired godoc
// @Summary List in-flight requests stuck on unassigned approvers
// @Tags requests
// @Produce json
// @Success 200 {array} WorkflowRequest
// @Router /api/requests/action-required [get]
func (c *RequestController) ListActionRequired(ctx *fiber.Ctx) error {
	stuck := true
	requests, err := c.Service.List(ctx.UserContext(), Filter{ActionRequired: &stuck})
	if err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.JSON(requests)
}
