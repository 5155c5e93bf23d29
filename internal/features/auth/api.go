package auth

import (
	"go-hr/internal/common/api"
	"go-hr/internal/config"
	"go-hr/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AuthApi struct {
	controller *AuthController
	config     *config.Config
}

func NewAuthApi(controller *AuthController, config *config.Config) api.Route {
	return &AuthApi{
		controller: controller,
		config:     config,
	}
}

// Setup registers all auth-related routes
func (h *AuthApi) Setup(app *fiber.App) {
	auth := app.Group("/api/auth", middleware.AuthMiddleware(h.config.SkipAuth))

	auth.Get("/me", h.controller.Me)
	auth.Post("/token", middleware.RequireRole(middleware.RoleHRAdmin), h.controller.IssueToken)
}
