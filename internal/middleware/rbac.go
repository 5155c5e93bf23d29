package middleware

import (
	"slices"

	"go-hr/internal/common/models"
	"go-hr/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

const RoleHRAdmin = models.RoleHRAdmin

// RequireRole lets the request through when the caller holds any of the given roles.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		for _, r := range roles {
			if slices.Contains(claims.Roles, r) {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden: Insufficient permissions",
		})
	}
}
