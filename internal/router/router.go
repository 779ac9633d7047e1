package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/phybench-api/internal/config"
	"github.com/noah-isme/phybench-api/internal/handler"
	"github.com/noah-isme/phybench-api/internal/middleware"
	"github.com/noah-isme/phybench-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ProblemHandler      *handler.ProblemHandler
	ReviewHandler       *handler.ReviewHandler
	AttachmentHandler   *handler.AttachmentHandler
	UserHandler         *handler.UserHandler
	StatsHandler        *handler.StatsHandler
	ExportHandler       *handler.ExportHandler
	CurationHandler     *handler.CurationHandler
	ScoreHandler        *handler.ScoreHandler
	ActivityHandler     *handler.ActivityHandler
	AIEvaluationHandler *handler.AIEvaluationHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}

	reviewLimit := cfg.ReviewRateLimit
	if reviewLimit <= 0 {
		reviewLimit = 30
	}

	problems := api.Group("/problems", jwtMiddleware)
	if deps.ReviewHandler != nil {
		deps.ReviewHandler.Register(problems.Group("/:id/review", middleware.RateLimit("review", reviewLimit, time.Minute)))
	}
	if deps.AttachmentHandler != nil {
		deps.AttachmentHandler.Register(problems.Group("/:id/attachments", middleware.RateLimit("attachment", 10, time.Minute)))
	}
	if deps.ProblemHandler != nil {
		deps.ProblemHandler.Register(problems)
	}

	if deps.UserHandler != nil {
		deps.UserHandler.RegisterSelf(api.Group("/me", jwtMiddleware))
		deps.UserHandler.RegisterDirectory(api.Group("/users", jwtMiddleware))
	}

	admin := api.Group("/admin", jwtMiddleware, middleware.RequireRole("admin"))
	if deps.ProblemHandler != nil {
		deps.ProblemHandler.RegisterAdmin(admin.Group("/problems"))
	}
	if deps.AIEvaluationHandler != nil {
		deps.AIEvaluationHandler.Register(admin.Group("/problems/:id/ai-evaluations", middleware.RateLimit("ai_evaluation", 5, time.Minute)))
	}
	if deps.StatsHandler != nil {
		deps.StatsHandler.Register(admin.Group("/stats"))
	}
	if deps.ExportHandler != nil {
		deps.ExportHandler.Register(admin.Group("/export"))
	}
	if deps.CurationHandler != nil {
		deps.CurationHandler.Register(admin)
	}
	if deps.UserHandler != nil {
		deps.UserHandler.RegisterAdmin(admin.Group("/users"))
	}
	if deps.ScoreHandler != nil {
		deps.ScoreHandler.Register(admin.Group("/scores"))
	}
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(admin.Group("/activities"))
	}
}
