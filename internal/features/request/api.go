package request

import (
	"go-hr/internal/config"
	"go-hr/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type RequestApi struct {
	controller *RequestController
	config     *config.Config
}

func NewRequestApi(controller *RequestController, config *config.Config) *RequestApi {
	return &RequestApi{controller: controller, config: config}
}

func (h *RequestApi) Setup(app *fiber.App) {
	requests := app.Group("/api/requests", middleware.AuthMiddleware(h.config.SkipAuth))
	adminOnly := middleware.RequireRole(middleware.RoleHRAdmin)

	requests.Post("/", h.controller.CreateRequest)
	requests.Get("/", adminOnly, h.controller.ListRequests)
	requests.Get("/mine", h.controller.ListMine)
	requests.Get("/pending", h.controller.ListPending)
	requests.Get("/action-required", adminOnly, h.controller.ListActionRequired)
	requests.Post("/bulk", h.controller.BulkAction)
	requests.Get("/:id", h.controller.GetRequest)
	requests.Post("/:id/submit", h.controller.SubmitRequest)
	requests.Post("/:id/approve", h.controller.ApproveStep)
	requests.Post("/:id/reject", h.controller.RejectStep)
	requests.Post("/:id/delegate", h.controller.DelegateStep)
	requests.Post("/:id/cancel", h.controller.CancelRequest)
	requests.Post("/:id/return", h.controller.ReturnRequest)
}
