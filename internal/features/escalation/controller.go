package escalation

import (
	"go-hr/internal/common/apperrors"

	"github.com/gofiber/fiber/v2"
)

type EscalationController struct {
	Service SchedulerService
}

func NewEscalationController(service SchedulerService) *EscalationController {
	return &EscalationController{Service: service}
}

// GetStatus godoc
// @Summary Escalation scheduler status
// @Tags escalations
// @Produce json
// @Success 200 {object} Status
// @Router /api/escalations [get]
func (c *EscalationController) GetStatus(ctx *fiber.Ctx) error {
	status, err := c.Service.Status(ctx.UserContext())
	if err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.JSON(status)
}

// ListRuns godoc
// @Summary Recent escalation sweeps
// @Tags escalations
// @Produce json
// @Param limit query int false "Max runs" default(20)
// @Success 200 {array} SweepRun
// @Router /api/escalations/runs [get]
func (c *EscalationController) ListRuns(ctx *fiber.Ctx) error {
	runs, err := c.Service.ListRuns(ctx.UserContext(), int64(ctx.QueryInt("limit", 20)))
	if err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.JSON(runs)
}

// RunSweep godoc
// @Summary Run the escalation sweep now
// @Tags escalations
// @Produce json
// @Success 200 {object} SweepRun
// @Failure 409 {object} map[string]string "Sweep already running"
// @Router /api/escalations/run [post]
func (c *EscalationController) RunSweep(ctx *fiber.Ctx) error {
	run, err := c.Service.RunNow(ctx.UserContext(), TriggerManual)
	if err != nil && run == nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.JSON(run)
}
