package flow

import (
	"go-hr/internal/config"
	"go-hr/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type FlowApi struct {
	controller *FlowController
	config     *config.Config
}

func NewFlowApi(controller *FlowController, config *config.Config) *FlowApi {
	return &FlowApi{controller: controller, config: config}
}

func (h *FlowApi) Setup(app *fiber.App) {
	flows := app.Group("/api/flows", middleware.AuthMiddleware(h.config.SkipAuth))
	adminOnly := middleware.RequireRole(middleware.RoleHRAdmin)

	flows.Get("/", h.controller.ListFlows)
	flows.Post("/preview", h.controller.PreviewRoute)
	flows.Get("/:id", h.controller.GetFlow)
	flows.Post("/", adminOnly, h.controller.CreateFlow)
	flows.Put("/:id", adminOnly, h.controller.UpdateFlow)
	flows.Delete("/:id", adminOnly, h.controller.DeleteFlow)
}
