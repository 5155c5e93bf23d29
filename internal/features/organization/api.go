package organization

import (
	"go-hr/internal/config"
	"go-hr/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type OrganizationApi struct {
	controller *OrganizationController
	config     *config.Config
}

func NewOrganizationApi(controller *OrganizationController, config *config.Config) *OrganizationApi {
	return &OrganizationApi{controller: controller, config: config}
}

func (h *OrganizationApi) Setup(app *fiber.App) {
	org := app.Group("/api/organization", middleware.AuthMiddleware(h.config.SkipAuth))

	org.Get("/members", h.controller.ListMembers)
	org.Get("/members/:id", h.controller.GetMember)
	org.Get("/members/:id/chain", h.controller.GetReportingChain)

	adminOnly := middleware.RequireRole(middleware.RoleHRAdmin)
	org.Put("/members", adminOnly, h.controller.SaveMember)
	org.Put("/members/:id", adminOnly, h.controller.SaveMember)
	org.Delete("/members/:id", adminOnly, h.controller.DeleteMember)
	org.Post("/import", adminOnly, h.controller.ImportMembers)
}
