package server

import (
	"time"

	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/service"

	"github.com/gofiber/fiber/v2"
)

type signupRequest struct {
	Username        string `json:"username" form:"username"`
	Password        string `json:"password" form:"password1"`
	PasswordConfirm string `json:"password_confirm" form:"password2"`
	FirstName       string `json:"first_name" form:"first_name"`
	LastName        string `json:"last_name" form:"last_name"`
	Email           string `json:"email" form:"email"`
}

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
	Next     string `json:"next" form:"next"`
}

// SignupForm handles GET /auth/signup/
func (s *Server) SignupForm(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"form": newFormPage(nil)})
}

// Signup handles POST /auth/signup/
func (s *Server) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	_, err := s.userService.Signup(c.UserContext(), service.SignupInput{
		Username:        req.Username,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
	})
	if err != nil {
		if fields, ok := formErrors(err); ok {
			form := newFormPage(map[string]string{
				"username":   req.Username,
				"first_name": req.FirstName,
				"last_name":  req.LastName,
				"email":      req.Email,
			})
			form.Errors = fields
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"form": form})
		}
		return s.fail(c, err)
	}
	return c.Redirect(s.config.LoginURL, fiber.StatusFound)
}

// LoginForm handles GET /auth/login/
func (s *Server) LoginForm(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"form": newFormPage(nil),
		"next": safeNext(c.Query("next")),
	})
}

// Login handles POST /auth/login/. Form submissions are redirected to next;
// JSON clients get the token in the body as well as the cookie.
func (s *Server) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Next == "" {
		req.Next = c.Query("next")
	}

	user, err := s.userService.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return s.fail(c, err)
	}

	token, claims, err := middleware.IssueToken(s.config.JWTSecret, user.ID, user.Username, time.Now())
	if err != nil {
		return s.fail(c, models.NewInternalError(err))
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  claims.ExpiresAt,
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	if wantsJSON(c) {
		return c.JSON(fiber.Map{"token": token, "user": user})
	}
	return c.Redirect(safeNext(req.Next), fiber.StatusFound)
}

// Logout handles POST /auth/logout/
func (s *Server) Logout(c *fiber.Ctx) error {
	if claims, ok := c.Locals("claims").(*middleware.Claims); ok {
		if err := middleware.Revoke(c.UserContext(), s.redis, claims); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "failed to revoke token",
				"jti", claims.JTI, "error", err.Error())
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.Redirect("/", fiber.StatusFound)
}
