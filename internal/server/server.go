// Package server contains the HTTP handlers and routing for the Yatube API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"yatube/internal/bootstrap"
	"yatube/internal/cache"
	"yatube/internal/config"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/repository"
	"yatube/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	feedCache      *cache.Cache

	postService    *service.PostService
	feedService    *service.FeedService
	followService  *service.FollowService
	commentService *service.CommentService
	userService    *service.UserService
	groupService   *service.GroupService
}

// NewServer connects the database and Redis and wires every service.
func NewServer(cfg *config.Config) (*Server, error) {
	db, redisClient, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		return nil, err
	}
	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// A nil redisClient keeps the feed cache in process and disables revocation
// and rate limiting storage.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	var store cache.Store = cache.NewMemoryStore(nil)
	if redisClient != nil {
		store = cache.NewRedisStore(redisClient)
	}
	return newServer(cfg, db, redisClient, cache.New("global_feed", store)), nil
}

func newServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, feedCache *cache.Cache) *Server {
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db, cfg.FeedPageSize)
	groupRepo := repository.NewGroupRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	followRepo := repository.NewFollowRepository(db)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("yatube-api"),
		feedCache:      feedCache,
	}

	images := service.NewImageService(cfg)
	s.postService = service.NewPostService(postRepo, groupRepo, userRepo, images)
	s.feedService = service.NewFeedService(postRepo, groupRepo, userRepo, feedCache, cfg.FeedCacheTTL())
	s.followService = service.NewFollowService(followRepo, userRepo)
	s.commentService = service.NewCommentService(commentRepo)
	s.userService = service.NewUserService(userRepo)
	s.groupService = service.NewGroupService(groupRepo, userRepo, postRepo, images)
	return s
}

// App builds the Fiber application with middleware and routes installed.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "Yatube",
		BodyLimit:    (s.config.ImageMaxUploadSizeMB + 1) * 1024 * 1024,
		ErrorHandler: s.errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// errorHandler answers unmatched routes with the not-found document and
// anything else that escaped a handler with a generic 500.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		switch fe.Code {
		case fiber.StatusNotFound:
			return models.RespondWithError(c, fiber.StatusNotFound,
				&models.AppError{Code: models.CodeNotFound, Message: "Not found"})
		case fiber.StatusRequestEntityTooLarge, fiber.StatusMethodNotAllowed, fiber.StatusBadRequest:
			return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
		}
	}

	status := models.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return models.RespondWithError(c, status, err)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())

	// Resolve the session before the context middleware so the user ID reaches the logger.
	app.Use(middleware.Authenticate(s.config.JWTSecret, s.redis))
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	if s.config.IsProduction() {
		app.Use(limiter.New(limiter.Config{
			Max:        300,
			Expiration: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error": "Too many requests, please try again later.",
				})
			},
		}))
	}
}

// SetupRoutes configures all routes for the application. Fixed prefixes are
// registered before the catch-all /:username routes.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	app.Static(s.config.MediaURL, s.config.MediaRoot)

	loginRequired := middleware.LoginRequired(s.config.LoginURL)

	app.Get("/", s.Index)
	app.Get("/group/:slug/", s.GroupPosts)
	app.Get("/new/", loginRequired, s.NewPostForm)
	app.Post("/new/", loginRequired, middleware.RateLimit(s.redis, 10, time.Minute, "create_post"), s.CreatePost)
	app.Get("/follow/", loginRequired, s.FollowIndex)

	auth := app.Group("/auth")
	auth.Get("/signup/", s.SignupForm)
	auth.Post("/signup/", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Get("/login/", s.LoginForm)
	auth.Post("/login/", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout/", s.Logout)

	admin := app.Group("/admin", loginRequired, s.AdminRequired())
	admin.Get("/groups/", s.ListGroups)
	admin.Post("/groups/", s.CreateGroup)
	admin.Delete("/groups/:slug/", s.DeleteGroup)
	admin.Delete("/users/:username/", s.DeleteUser)

	// Specific /:username/:resource routes before the generic /:username/:post_id.
	app.Post("/:username/follow/", loginRequired, s.ProfileFollow)
	app.Post("/:username/unfollow/", loginRequired, s.ProfileUnfollow)
	app.Get("/:username/:post_id/edit/", loginRequired, s.EditPostForm)
	app.Post("/:username/:post_id/edit/", loginRequired, s.EditPost)
	app.Post("/:username/:post_id/comment/", loginRequired,
		middleware.RateLimit(s.redis, 20, time.Minute, "create_comment"), s.AddComment)
	app.Get("/:username/:post_id/", s.PostView)
	app.Get("/:username/", s.Profile)
}

// Start builds the app and listens on the configured port.
func (s *Server) Start() error {
	app := s.App()
	slog.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully stops the HTTP server and closes the database and Redis.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			slog.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			slog.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			slog.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	slog.Info("server shutdown complete")
	return nil
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database and Redis health. Redis is optional: the
// app runs without it, so its absence does not fail readiness.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}
