package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/kickback/api/comments"
	commentHandlers "github.com/kickback/api/comments/handlers"
	commentRepository "github.com/kickback/api/comments/repository"
	commentServices "github.com/kickback/api/comments/services"
	"github.com/kickback/api/internal/cache"
	"github.com/kickback/api/internal/database/postgres"
	"github.com/kickback/api/internal/middleware/authjwt"
	"github.com/kickback/api/internal/middleware/ratelimit"
	"github.com/kickback/api/internal/middleware/requestid"
	"github.com/kickback/api/internal/pkg/log"
	platformconfig "github.com/kickback/api/internal/platform/config"
	"github.com/kickback/api/internal/types"
	"github.com/kickback/api/threads"
	threadHandlers "github.com/kickback/api/threads/handlers"
	"github.com/kickback/api/threads/optimistic"
)

func main() {
	cfg, err := platformconfig.LoadFromEnv()
	if err != nil {
		log.Error("Failed to load platform config: %v", err)
		os.Exit(1)
	}
	log.Debug(cfg.Server.Debug, cfg.Threads, cfg.Cache.Backend)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			log.ErrorWithContext(c.UserContext(), "[ErrorHandler] Path: %s, Error: %v, Code: %d", c.Path(), err, code)

			// If response already set by handler, don't override it
			if len(c.Response().Body()) > 0 {
				return nil
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.WebDomain,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
	}))

	ctx := context.Background()
	pgClient, err := postgres.NewClient(ctx, cfg.Database.Postgres)
	if err != nil {
		log.Error("Failed to create postgres client: %v", err)
		os.Exit(1)
	}
	defer pgClient.Close()

	schemaCtx, schemaCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := commentRepository.EnsureSchema(schemaCtx, pgClient); err != nil {
		log.Warn("Failed to ensure comments schema: %v", err)
	} else {
		log.Info("Comments schema ready")
	}
	schemaCancel()

	cacheService := cache.NewServiceFromConfig(cfg.Cache)
	defer cacheService.Close()

	commentRepo := commentRepository.NewPostgresCommentRepository(pgClient)
	commentService := commentServices.NewCommentService(commentRepo, cacheService)

	auth := authjwt.New(authjwt.Config{
		PublicKey:   cfg.JWT.PublicKey,
		ClaimKey:    cfg.JWT.ClaimKey,
		UserCtxName: types.UserCtxName,
	})
	limits := cfg.RateLimits.CommentCreate
	createLimiter := ratelimit.NewCommentLimiter(limits.Enabled, limits.Max, limits.Duration)

	comments.RegisterRoutes(app, &comments.CommentsHandlers{
		CommentHandler: commentHandlers.NewCommentHandler(commentService),
	}, auth, createLimiter)

	// Sessions talk to the comment service in-process
	actions := comments.NewDirectCallActions(commentService)
	sessionOpts := optimistic.OptionsFromConfig(cfg.Threads)
	sessions, err := optimistic.NewSessionStore(cfg.Threads.SessionCapacity, func(user types.UserContext) *optimistic.Session {
		return optimistic.NewSession(user, actions, actions, sessionOpts)
	})
	if err != nil {
		log.Error("Failed to create session store: %v", err)
		os.Exit(1)
	}

	threads.RegisterRoutes(app, &threads.ThreadsHandlers{
		ThreadHandler: threadHandlers.NewThreadHandler(sessions),
	}, auth, createLimiter)

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := pgClient.Ping(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok", "sessions": sessions.Len()})
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Info("Shutting down, flushing pending deletions")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("Shutdown error: %v", err)
		}
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("Starting Kick Back API on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Error("Server stopped: %v", err)
	}
	sessions.Close()
}
