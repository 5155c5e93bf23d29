package delegation

import (
	"go-hr/internal/config"
	"go-hr/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type DelegationApi struct {
	controller *DelegationController
	config     *config.Config
}

func NewDelegationApi(controller *DelegationController, config *config.Config) *DelegationApi {
	return &DelegationApi{controller: controller, config: config}
}

func (h *DelegationApi) Setup(app *fiber.App) {
	group := app.Group("/api/delegations", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Get("/", h.controller.List)
	group.Post("/", h.controller.Create)
	group.Delete("/:id", h.controller.Revoke)
}
