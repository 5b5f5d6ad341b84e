package server

import (
	"yatube/internal/models"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AdminRequired returns middleware that rejects non-admin users with 403.
// Must be placed after LoginRequired so that userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := s.requireUser(c)
		if err != nil {
			return s.fail(c, err)
		}
		if !user.IsAdmin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}
		return c.Next()
	}
}

// ListGroups handles GET /admin/groups/
func (s *Server) ListGroups(c *fiber.Ctx) error {
	groups, err := s.groupService.ListGroups(c.UserContext())
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"groups": groups})
}

// CreateGroup handles POST /admin/groups/
func (s *Server) CreateGroup(c *fiber.Ctx) error {
	var in service.CreateGroupInput
	if err := c.BodyParser(&in); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	group, err := s.groupService.CreateGroup(c.UserContext(), in)
	if err != nil {
		if fields, ok := formErrors(err); ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":  "invalid group",
				"code":   models.CodeValidation,
				"fields": fields,
			})
		}
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(group)
}

// DeleteGroup handles DELETE /admin/groups/:slug/
func (s *Server) DeleteGroup(c *fiber.Ctx) error {
	if err := s.groupService.DeleteGroup(c.UserContext(), routeParam(c, "slug")); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteUser handles DELETE /admin/users/:username/
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	if err := s.groupService.DeleteUser(c.UserContext(), routeParam(c, "username")); err != nil {
		return s.fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
