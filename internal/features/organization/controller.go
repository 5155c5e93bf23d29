package organization

import (
	"strconv"

	"go-hr/internal/common/apperrors"
	"go-hr/internal/common/models"

	"github.com/gofiber/fiber/v2"
)

type OrganizationController struct {
	Service OrganizationService
}

func NewOrganizationController(service OrganizationService) *OrganizationController {
	return &OrganizationController{Service: service}
}

// ListMembers godoc
// @Summary List members
// @Tags organization
// @Produce json
// @Param department query string false "Department"
// @Param role query string false "Role"
// @Param status query string false "Status"
// @Param manager_id query string false "Manager ID"
// @Success 200 {array} models.Member
// @Router /api/organization/members [get]
func (c *OrganizationController) ListMembers(ctx *fiber.Ctx) error {
	filter := models.MemberFilter{
		Department: ctx.Query("department"),
		Role:       ctx.Query("role"),
		Status:     models.MemberStatus(ctx.Query("status")),
		ManagerID:  ctx.Query("manager_id"),
	}
	members, err := c.Service.ListMembers(ctx.UserContext(), filter)
	if err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.JSON(members)
}

// GetMember godoc
// @Summary Get a member
// @Tags organization
// @Produce json
// @Param id path string true "Member ID"
// @Success 200 {object} models.Member
// @Failure 404 {object} map[string]string "Member not found"
// @Router /api/organization/members/{id} [get]
func (c *OrganizationController) GetMember(ctx *fiber.Ctx) error {
	member, err := c.Service.GetMember(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.JSON(member)
}

// GetReportingChain godoc
// @Summary Managers above a member, nearest first
// @Tags organization
// @Produce json
// @Param id path string true "Member ID"
// @Param depth query int false "Maximum levels" default(5)
// @Success 200 {array} models.Member
// @Router /api/organization/members/{id}/chain [get]
func (c *OrganizationController) GetReportingChain(ctx *fiber.Ctx) error {
	depth, err := strconv.Atoi(ctx.Query("depth", "5"))
	if err != nil || depth < 1 {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "depth must be a positive integer"})
	}
	chain, err := c.Service.ReportingChain(ctx.UserContext(), ctx.Params("id"), depth)
	if err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.JSON(chain)
}

// SaveMember godoc
// @Summary Create or replace a member
// @Tags organization
// @Accept json
// @Produce json
// @Param member body models.Member true "Member"
// @Success 200 {object} models.Member
// @Failure 400 {object} map[string]string "Invalid member"
// @Router /api/organization/members [put]
func (c *OrganizationController) SaveMember(ctx *fiber.Ctx) error {
	var input models.Member
	if err := ctx.BodyParser(&input); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if id := ctx.Params("id"); id != "" {
		input.ID = id
	}
	if err := c.Service.SaveMember(ctx.UserContext(), &input); err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.JSON(input)
}

// DeleteMember godoc
// @Summary Delete a member
// @Tags organization
// @Param id path string true "Member ID"
// @Success 204 {object} nil "No Content"
// @Router /api/organization/members/{id} [delete]
func (c *OrganizationController) DeleteMember(ctx *fiber.Ctx) error {
	if err := c.Service.DeleteMember(ctx.UserContext(), ctx.Params("id")); err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.SendStatus(fiber.StatusNoContent)
}

// ImportMembers godoc
// @Summary Import the org chart from an xlsx workbook
// @Tags organization
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Org chart workbook"
// @Success 200 {object} ImportResult
// @Router /api/organization/import [post]
func (c *OrganizationController) ImportMembers(ctx *fiber.Ctx) error {
	fh, err := ctx.FormFile("file")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file is required"})
	}
	file, err := fh.Open()
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "failed to open uploaded file"})
	}
	defer file.Close()

	result, err := c.Service.ImportMembers(ctx.UserContext(), file)
	if err != nil {
		return apperrors.Respond(ctx, err)
	}
	return ctx.JSON(result)
}
