package server

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/valyala/fasthttp"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// FormPage is the JSON document for a form view: the submitted values and the
// field errors found on them.
type FormPage struct {
	Values map[string]string       `json:"values"`
	Errors models.ValidationResult `json:"errors"`
}

func newFormPage(values map[string]string) FormPage {
	if values == nil {
		values = map[string]string{}
	}
	return FormPage{Values: values, Errors: models.ValidationResult{}}
}

// currentUser loads the authenticated user, or nil for anonymous visitors. A
// token for a user that no longer exists counts as anonymous.
func (s *Server) currentUser(c *fiber.Ctx) (*models.User, error) {
	if u, ok := c.Locals("user").(*models.User); ok {
		return u, nil
	}
	userID, ok := c.Locals("userID").(uint)
	if !ok {
		return nil, nil
	}
	user, err := s.userService.GetUserByID(c.UserContext(), userID)
	if err != nil {
		if models.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	c.Locals("user", user)
	return user, nil
}

// requireUser is currentUser behind LoginRequired; a vanished account is sent to login.
func (s *Server) requireUser(c *fiber.Ctx) (*models.User, error) {
	user, err := s.currentUser(c)
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = c.Redirect(middleware.LoginRedirectURL(s.config.LoginURL, c.OriginalURL()), fiber.StatusFound)
		return nil, errResponseWritten
	}
	return user, nil
}

// fail writes err as a JSON error document with the status its code maps to.
func (s *Server) fail(c *fiber.Ctx, err error) error {
	if errors.Is(err, errResponseWritten) {
		return nil
	}
	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"path", c.Path(), "error", err.Error())
	}
	return models.RespondWithError(c, status, err)
}

// formErrors extracts the field errors of a *models.FormError.
func formErrors(err error) (models.ValidationResult, bool) {
	var formErr *models.FormError
	if errors.As(err, &formErr) {
		return formErr.Fields, true
	}
	return nil, false
}

// routeParam and queryParam copy the value out of the request buffer, which
// fasthttp reuses once the handler returns. Spans and cache entries keep
// these strings longer than that.
func routeParam(c *fiber.Ctx, key string) string {
	return utils.CopyString(c.Params(key))
}

func queryParam(c *fiber.Ctx, key string) string {
	return utils.CopyString(c.Query(key))
}

// parsePostID extracts the post_id route parameter. Anything that is not a
// positive integer is a missing post.
func parsePostID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("post_id")
	if err != nil || id <= 0 {
		return 0, models.NewNotFoundError("Post", routeParam(c, "post_id"))
	}
	return uint(id), nil
}

// postURL is the read-only view of post.
func postURL(username string, postID uint) string {
	return fmt.Sprintf("/%s/%d/", username, postID)
}

// readImageUpload returns the file sent in the image field, or nil when none was sent.
func (s *Server) readImageUpload(c *fiber.Ctx) (*service.ImageUpload, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, fasthttp.ErrMissingFile) || errors.Is(err, fasthttp.ErrNoMultipartForm) {
			return nil, nil
		}
		return nil, models.NewValidationError("malformed multipart form")
	}
	if fh.Size == 0 && fh.Filename == "" {
		return nil, nil
	}

	f, err := fh.Open()
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	defer f.Close()

	// Read one byte past the limit so an oversized file is still reported as too large.
	limit := int64(s.config.ImageMaxUploadSizeMB)*1024*1024 + 1
	content, err := io.ReadAll(io.LimitReader(f, limit))
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	return &service.ImageUpload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Content:     content,
	}, nil
}

// safeNext returns next when it is a local path, "/" otherwise.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return "/"
	}
	return next
}

// wantsJSON reports whether the request body was sent as JSON rather than a form.
func wantsJSON(c *fiber.Ctx) bool {
	return strings.HasPrefix(strings.ToLower(c.Get(fiber.HeaderContentType)), fiber.MIMEApplicationJSON)
}
