package auth

import (
	"time"

	"go-hr/internal/common/apperrors"
	"go-hr/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type AuthController struct {
	Service AuthService
}

func NewAuthController(service AuthService) *AuthController {
	return &AuthController{Service: service}
}

type tokenInput struct {
	MemberID string `json:"member_id"`
	TTLHours int    `json:"ttl_hours"`
}

// IssueToken godoc
// @Summary Issue a token for a directory member
// @Tags auth
// @Accept json
// @Produce json
// @Param input body tokenInput true "Member and lifetime"
// @Success 200 {object} TokenResponse
// @Failure 404 {object} map[string]string "Member not found"
// @Router /api/auth/token [post]
func (c *AuthController) IssueToken(ctx *fiber.Ctx) error {
	var input tokenInput
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	resp, err := c.Service.IssueToken(ctx.UserContext(), input.MemberID, time.Duration(input.TTLHours)*time.Hour)
	if err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.JSON(resp)
}

// Me godoc
// @Summary The calling member
// @Tags auth
// @Produce json
// @Success 200 {object} models.Member
// @Router /api/auth/me [get]
func (c *AuthController) Me(ctx *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	member, err := c.Service.Me(ctx.UserContext(), actor)
	if err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.JSON(member)
}
