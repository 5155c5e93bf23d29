package escalation

import (
	"go-hr/internal/config"
	"go-hr/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type EscalationApi struct {
	controller *EscalationController
	config     *config.Config
}

func NewEscalationApi(controller *EscalationController, config *config.Config) *EscalationApi {
	return &EscalationApi{controller: controller, config: config}
}

func (h *EscalationApi) Setup(app *fiber.App) {
	escalations := app.Group("/api/escalations",
		middleware.AuthMiddleware(h.config.SkipAuth),
		middleware.RequireRole(middleware.RoleHRAdmin),
	)

	escalations.Get("/", h.controller.GetStatus)
	escalations.Get("/runs", h.controller.ListRuns)
	escalations.Post("/run", h.controller.RunSweep)
}
