package audit

import (
	"time"

	"go-hr/internal/common/apperrors"
	"go-hr/internal/common/models"

	"github.com/gofiber/fiber/v2"
)

type AuditController struct {
	Service AuditService
}

func NewAuditController(service AuditService) *AuditController {
	return &AuditController{Service: service}
}

func parseTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, apperrors.Validation("invalid time %q, expected RFC3339", raw)
	}
	return &t, nil
}

// ListLogs godoc
// @Summary List audit events
// @Tags audit
// @Produce json
// @Param request_id query string false "Request ID"
// @Param action query string false "Action"
// @Param actor_id query string false "Actor ID"
// @Param since query string false "RFC3339 lower bound"
// @Param until query string false "RFC3339 upper bound"
// @Router /api/audit-logs [get]
func (ctrl *AuditController) ListLogs(c *fiber.Ctx) error {
	q := Query{
		RequestID: c.Query("request_id"),
		Action:    models.AuditAction(c.Query("action")),
		ActorID:   c.Query("actor_id"),
	}
	var err error
	if q.Since, err = parseTime(c.Query("since")); err != nil {
		return apperrors.Respond(c, err)
	}
	if q.Until, err = parseTime(c.Query("until")); err != nil {
		return apperrors.Respond(c, err)
	}

	logs, err := ctrl.Service.ListLogs(c.UserContext(), q, int64(c.QueryInt("page", 1)), int64(c.QueryInt("limit", 20)))
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(logs)
}

// RequestHistory godoc
// @Summary Audit trail of one request, oldest first
// @Tags audit
// @Produce json
// @Param id path string true "Request ID"
// @Router /api/audit-logs/requests/{id} [get]
func (ctrl *AuditController) RequestHistory(c *fiber.Ctx) error {
	logs, err := ctrl.Service.ListLogs(c.UserContext(), Query{RequestID: c.Params("id")}, 1, 200)
	if err != nil {
		return apperrors.Respond(c, err)
	}
	return c.JSON(logs)
}
