package server

import (
	"github.com/gofiber/fiber/v2"
)

// AddComment handles POST /:username/:post_id/comment/
// Invalid comments are dropped and the visitor lands back on the post.
func (s *Server) AddComment(c *fiber.Ctx) error {
	user, err := s.requireUser(c)
	if err != nil {
		return s.fail(c, err)
	}
	postID, err := parsePostID(c)
	if err != nil {
		return s.fail(c, err)
	}
	post, err := s.postService.GetPost(c.UserContext(), routeParam(c, "username"), postID)
	if err != nil {
		return s.fail(c, err)
	}

	if _, err := s.commentService.AddComment(c.UserContext(), user, post, c.FormValue("text")); err != nil {
		if _, ok := formErrors(err); !ok {
			return s.fail(c, err)
		}
	}
	return c.Redirect(postURL(post.Author.Username, post.ID), fiber.StatusFound)
}
