package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis/v3"
	"github.com/redis/go-redis/v9"

	"tradewire/config"
	"tradewire/utils"
)

// RateLimitConfig holds all rate limiter instances
type RateLimitConfig struct {
	WebhookLimiter     fiber.Handler
	StreamTokenLimiter fiber.Handler
	SignalsLimiter     fiber.Handler
	LightweightLimiter fiber.Handler
}

// NewRateLimitConfig creates all rate limiters. With a Redis client the
// counters live in Redis so limits hold across replicas; without one the
// limiter falls back to its in-process storage.
func NewRateLimitConfig(cfg *config.Config, rdb *redis.Client) *RateLimitConfig {
	var storage fiber.Storage
	if rdb != nil {
		storage = redisstorage.NewFromConnection(rdb)
	}

	// Tier 1: Webhook ingestion. TradingView fires one request per alert,
	// so the ceiling is generous but still stops a looping alert script.
	webhookLimiter := limiter.New(limiter.Config{
		Max:        cfg.RateLimitMax,
		Expiration: cfg.RateLimitWindow,
		KeyGenerator: func(c *fiber.Ctx) string {
			return utils.ClientIP(c)
		},
		Storage: storage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many alerts. Please slow down.",
			})
		},
	})

	// Tier 2: Stream token minting (strict - the bearer token is guessable
	// only by brute force, so keep attempts expensive)
	streamTokenLimiter := limiter.New(limiter.Config{
		Max:        10,
		Expiration: 5 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return utils.ClientIP(c)
		},
		Storage: storage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many token requests. Please try again later.",
			})
		},
	})

	// Tier 3: Journal reads (database backed)
	signalsLimiter := limiter.New(limiter.Config{
		Max:        30,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return utils.ClientIP(c)
		},
		Storage: storage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many history requests. Please try again later.",
			})
		},
	})

	// Tier 4: Read-only status endpoints (liberal)
	lightweightLimiter := limiter.New(limiter.Config{
		Max:        200,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return utils.ClientIP(c)
		},
		Storage: storage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	})

	return &RateLimitConfig{
		WebhookLimiter:     webhookLimiter,
		StreamTokenLimiter: streamTokenLimiter,
		SignalsLimiter:     signalsLimiter,
		LightweightLimiter: lightweightLimiter,
	}
}
