package notification

import (
	"go-hr/internal/common/apperrors"
	"go-hr/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type NotificationController struct {
	service NotificationService
}

func NewNotificationController(service NotificationService) *NotificationController {
	return &NotificationController{
		service: service,
	}
}

// List godoc
// @Summary Inbox of the current member, including role-addressed notices
// @Tags notifications
// @Produce json
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(20)
// @Param unread query bool false "Only unread"
// @Param kind query string false "Notice kind"
// @Param request_id query string false "Related request"
// @Router /api/notifications [get]
func (c *NotificationController) List(ctx *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	page := int64(ctx.QueryInt("page", 1))
	limit := int64(ctx.QueryInt("limit", 20))
	q := InboxQuery{
		UnreadOnly: ctx.QueryBool("unread", false),
		Kind:       Kind(ctx.Query("kind")),
		RequestID:  ctx.Query("request_id"),
	}

	notifications, total, err := c.service.List(ctx.UserContext(), actor, q, page, limit)
	if err != nil {
		return apperrors.Respond(ctx, err)
	}

	return ctx.JSON(fiber.Map{
		"data":  notifications,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetUnreadCount godoc
// @Summary Number of unread notifications
// @Tags notifications
// @Produce json
// @Router /api/notifications/unread-count [get]
func (c *NotificationController) GetUnreadCount(ctx *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	count, err := c.service.UnreadCount(ctx.UserContext(), actor)
	if err != nil {
		return apperrors.Respond(ctx, err)
	}

	return ctx.JSON(fiber.Map{"count": count})
}

// MarkAsRead godoc
// @Summary Mark one notification as read
// @Tags notifications
// @Param id path string true "Notification ID"
// @Router /api/notifications/{id}/read [put]
func (c *NotificationController) MarkAsRead(ctx *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	if err := c.service.MarkAsRead(ctx.UserContext(), actor, ctx.Params("id")); err != nil {
		return apperrors.Respond(ctx, err)
	}

	return ctx.JSON(fiber.Map{"status": "success"})
}

// MarkAllAsRead godoc
// @Summary Mark every notification as read
// @Tags notifications
// @Router /api/notifications/mark-all-read [post]
func (c *NotificationController) MarkAllAsRead(ctx *fiber.Ctx) error {
	actor, ok := middleware.CurrentActor(ctx)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}

	n, err := c.service.MarkAllAsRead(ctx.UserContext(), actor)
	if err != nil {
		return apperrors.Respond(ctx, err)
	}

	return ctx.JSON(fiber.Map{"status": "success", "updated": n})
}
