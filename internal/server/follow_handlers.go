package server

import (
	"github.com/gofiber/fiber/v2"
)

// FollowIndex handles GET /follow/
func (s *Server) FollowIndex(c *fiber.Ctx) error {
	user, err := s.requireUser(c)
	if err != nil {
		return s.fail(c, err)
	}
	page, err := s.feedService.FollowFeed(c.UserContext(), user, queryParam(c, "page"))
	if err != nil {
		return s.fail(c, err)
	}
	authors, err := s.followService.FollowedAuthors(c.UserContext(), user)
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"page": page, "authors": authors})
}

// ProfileFollow handles POST /:username/follow/
func (s *Server) ProfileFollow(c *fiber.Ctx) error {
	user, err := s.requireUser(c)
	if err != nil {
		return s.fail(c, err)
	}
	if err := s.followService.Follow(c.UserContext(), user, routeParam(c, "username")); err != nil {
		return s.fail(c, err)
	}
	return c.Redirect("/follow/", fiber.StatusFound)
}

// ProfileUnfollow handles POST /:username/unfollow/
func (s *Server) ProfileUnfollow(c *fiber.Ctx) error {
	user, err := s.requireUser(c)
	if err != nil {
		return s.fail(c, err)
	}
	if err := s.followService.Unfollow(c.UserContext(), user, routeParam(c, "username")); err != nil {
		return s.fail(c, err)
	}
	return c.Redirect("/", fiber.StatusFound)
}
