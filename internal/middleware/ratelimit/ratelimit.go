// Package ratelimit wraps fiber's limiter for comment-posting endpoints
package ratelimit

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/kickback/api/internal/middleware/authjwt"
	"github.com/kickback/api/internal/pkg/log"
)

// Config holds the configuration for rate limiting middleware
type Config struct {
	// Name is used in logs and the 429 message
	Name string

	Max      int
	Duration time.Duration

	// Next defines a function to skip this middleware when returned true
	Next func(c *fiber.Ctx) bool

	// KeyGenerator defaults to the authenticated user id, then client IP
	KeyGenerator func(c *fiber.Ctx) string

	// LimitReached defines the response when rate limit is exceeded
	LimitReached func(c *fiber.Ctx) error
}

func configDefault(config Config) Config {
	if config.Name == "" {
		config.Name = "request"
	}
	if config.Max <= 0 {
		config.Max = 30
	}
	if config.Duration <= 0 {
		config.Duration = time.Minute
	}

	if config.KeyGenerator == nil {
		config.KeyGenerator = func(c *fiber.Ctx) string {
			if user, ok := authjwt.UserFromCtx(c); ok {
				return "user:" + user.UserID.String() + ":" + c.Route().Path
			}
			return "ip:" + c.IP() + ":" + c.Route().Path
		}
	}

	if config.LimitReached == nil {
		name := config.Name
		window := config.Duration
		config.LimitReached = func(c *fiber.Ctx) error {
			log.Warn("[RateLimit] Rate limit exceeded for %s from IP: %s", name, c.IP())

			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"code":       "RATE_LIMIT_EXCEEDED",
				"message":    fmt.Sprintf("Too many %s attempts. Please try again later.", name),
				"retryAfter": int(window.Seconds()),
			})
		}
	}

	return config
}

// New creates a new rate limiting middleware handler
func New(config Config) fiber.Handler {
	cfg := configDefault(config)

	return limiter.New(limiter.Config{
		Max:          cfg.Max,
		Expiration:   cfg.Duration,
		KeyGenerator: cfg.KeyGenerator,
		LimitReached: cfg.LimitReached,
		Next:         cfg.Next,
	})
}

// NewCommentLimiter limits how fast a single user can post comments and replies.
// A disabled limiter is a pass-through handler.
func NewCommentLimiter(enabled bool, max int, window time.Duration) fiber.Handler {
	if !enabled {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return New(Config{
		Name:     "comment",
		Max:      max,
		Duration: window,
	})
}
