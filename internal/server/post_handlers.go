package server

import (
	"strconv"

	"yatube/internal/models"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

// PostFormPage is the document for the create and edit views.
type PostFormPage struct {
	Form   FormPage       `json:"form"`
	Groups []models.Group `json:"groups"`
	IsEdit bool           `json:"is_edit"`
	Post   *models.Post   `json:"post,omitempty"`
}

// Index handles GET /
func (s *Server) Index(c *fiber.Ctx) error {
	page, err := s.feedService.GlobalFeed(c.UserContext(), queryParam(c, "page"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"page": page})
}

// GroupPosts handles GET /group/:slug/
func (s *Server) GroupPosts(c *fiber.Ctx) error {
	group, page, err := s.feedService.GroupFeed(c.UserContext(), routeParam(c, "slug"), queryParam(c, "page"))
	if err != nil {
		return s.fail(c, err)
	}
	return c.JSON(fiber.Map{"group": group, "page": page})
}

// Profile handles GET /:username/
func (s *Server) Profile(c *fiber.Ctx) error {
	ctx := c.UserContext()
	author, page, err := s.feedService.AuthorFeed(ctx, routeParam(c, "username"), queryParam(c, "page"))
	if err != nil {
		return s.fail(c, err)
	}

	user, err := s.currentUser(c)
	if err != nil {
		return s.fail(c, err)
	}
	following, err := s.followService.IsFollowing(ctx, user, author)
	if err != nil {
		return s.fail(c, err)
	}
	counts, err := s.followService.Counts(ctx, author.ID)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"author":      author,
		"page":        page,
		"posts_count": page.Count,
		"following":   following,
		"counts":      counts,
	})
}

// PostView handles GET /:username/:post_id/
func (s *Server) PostView(c *fiber.Ctx) error {
	ctx := c.UserContext()
	postID, err := parsePostID(c)
	if err != nil {
		return s.fail(c, err)
	}
	post, err := s.postService.GetPost(ctx, routeParam(c, "username"), postID)
	if err != nil {
		return s.fail(c, err)
	}

	comments, err := s.commentService.ListComments(ctx, post)
	if err != nil {
		return s.fail(c, err)
	}
	postsCount, err := s.postService.CountByAuthor(ctx, post.AuthorID)
	if err != nil {
		return s.fail(c, err)
	}
	user, err := s.currentUser(c)
	if err != nil {
		return s.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"author":       post.Author,
		"post":         post,
		"comments":     comments,
		"posts_count":  postsCount,
		"can_edit":     s.postService.CanEdit(user, post),
		"comment_form": newFormPage(nil),
	})
}

// NewPostForm handles GET /new/
func (s *Server) NewPostForm(c *fiber.Ctx) error {
	return s.renderPostForm(c, newFormPage(nil), nil)
}

// CreatePost handles POST /new/
func (s *Server) CreatePost(c *fiber.Ctx) error {
	user, err := s.requireUser(c)
	if err != nil {
		return s.fail(c, err)
	}

	in, err := s.postInput(c)
	if err != nil {
		return s.fail(c, err)
	}

	if _, err := s.postService.CreatePost(c.UserContext(), user, in); err != nil {
		if fields, ok := formErrors(err); ok {
			form := newFormPage(postValues(in))
			form.Errors = fields
			return s.renderPostForm(c, form, nil)
		}
		return s.fail(c, err)
	}
	return c.Redirect("/", fiber.StatusFound)
}

// EditPostForm handles GET /:username/:post_id/edit/
func (s *Server) EditPostForm(c *fiber.Ctx) error {
	user, post, err := s.loadPostForEdit(c)
	if err != nil {
		return s.fail(c, err)
	}
	if !s.postService.CanEdit(user, post) {
		return c.Redirect(postURL(post.Author.Username, post.ID), fiber.StatusFound)
	}

	values := map[string]string{"text": post.Text, "group": ""}
	if post.GroupID != nil {
		values["group"] = strconv.FormatUint(uint64(*post.GroupID), 10)
	}
	return s.renderPostForm(c, newFormPage(values), post)
}

// EditPost handles POST /:username/:post_id/edit/
func (s *Server) EditPost(c *fiber.Ctx) error {
	user, post, err := s.loadPostForEdit(c)
	if err != nil {
		return s.fail(c, err)
	}
	view := postURL(post.Author.Username, post.ID)
	if !s.postService.CanEdit(user, post) {
		return c.Redirect(view, fiber.StatusFound)
	}

	in, err := s.postInput(c)
	if err != nil {
		return s.fail(c, err)
	}

	if _, err := s.postService.EditPost(c.UserContext(), user, post, in); err != nil {
		if fields, ok := formErrors(err); ok {
			form := newFormPage(postValues(in))
			form.Errors = fields
			return s.renderPostForm(c, form, post)
		}
		return s.fail(c, err)
	}
	return c.Redirect(view, fiber.StatusFound)
}

func (s *Server) loadPostForEdit(c *fiber.Ctx) (*models.User, *models.Post, error) {
	user, err := s.requireUser(c)
	if err != nil {
		return nil, nil, err
	}
	postID, err := parsePostID(c)
	if err != nil {
		return nil, nil, err
	}
	post, err := s.postService.GetPost(c.UserContext(), routeParam(c, "username"), postID)
	if err != nil {
		return nil, nil, err
	}
	return user, post, nil
}

func (s *Server) postInput(c *fiber.Ctx) (service.PostInput, error) {
	image, err := s.readImageUpload(c)
	if err != nil {
		return service.PostInput{}, err
	}
	return service.PostInput{
		Text:       c.FormValue("text"),
		Group:      c.FormValue("group"),
		Image:      image,
		ClearImage: c.FormValue("image-clear") != "",
	}, nil
}

func postValues(in service.PostInput) map[string]string {
	return map[string]string{"text": in.Text, "group": in.Group}
}

func (s *Server) renderPostForm(c *fiber.Ctx, form FormPage, post *models.Post) error {
	groups, err := s.groupService.ListGroups(c.UserContext())
	if err != nil {
		return s.fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(PostFormPage{
		Form:   form,
		Groups: groups,
		IsEdit: post != nil,
		Post:   post,
	})
}
