package audit

import (
	"go-hr/internal/config"
	"go-hr/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AuditApi struct {
	controller *AuditController
	config     *config.Config
}

func NewAuditApi(controller *AuditController, config *config.Config) *AuditApi {
	return &AuditApi{controller: controller, config: config}
}

// Setup exposes audit logs to HR administrators only.
func (h *AuditApi) Setup(app *fiber.App) {
	logs := app.Group("/api/audit-logs",
		middleware.AuthMiddleware(h.config.SkipAuth),
		middleware.RequireRole(middleware.RoleHRAdmin),
	)

	logs.Get("/", h.controller.ListLogs)
	logs.Get("/requests/:id", h.controller.RequestHistory)
}
