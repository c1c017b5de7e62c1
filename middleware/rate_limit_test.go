package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradewire/config"
	"tradewire/utils"
)

func testLimiterConfig() *config.Config {
	return &config.Config{
		RateLimitMax:    5,
		RateLimitWindow: time.Minute,
	}
}

func TestNewRateLimitConfig(t *testing.T) {
	// Create mock Redis server
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	// Create Redis client
	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	defer func() {
		_ = rdb.Close()
	}()

	// Create rate limit config
	rateLimits := NewRateLimitConfig(testLimiterConfig(), rdb)

	// Verify all limiters are created
	assert.NotNil(t, rateLimits.WebhookLimiter)
	assert.NotNil(t, rateLimits.StreamTokenLimiter)
	assert.NotNil(t, rateLimits.SignalsLimiter)
	assert.NotNil(t, rateLimits.LightweightLimiter)
}

func TestNewRateLimitConfigWithoutRedis(t *testing.T) {
	// Without a Redis client the limiters fall back to in-process storage
	rateLimits := NewRateLimitConfig(testLimiterConfig(), nil)

	app := fiber.New()
	app.Post("/tv", rateLimits.WebhookLimiter, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(fiber.MethodPost, "/tv", nil)
		req.Header.Set("X-Forwarded-For", "192.168.1.9")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	req := httptest.NewRequest(fiber.MethodPost, "/tv", nil)
	req.Header.Set("X-Forwarded-For", "192.168.1.9")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestWebhookLimiterEnforcement(t *testing.T) {
	// Create mock Redis server
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	// Create Redis client
	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	defer func() {
		_ = rdb.Close()
	}()

	// Create rate limit config with a 5 per minute ceiling
	rateLimits := NewRateLimitConfig(testLimiterConfig(), rdb)

	// Create test Fiber app
	app := fiber.New()
	app.Post("/tv", rateLimits.WebhookLimiter, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(fiber.MethodPost, "/tv", nil)
		req.Header.Set("X-Forwarded-For", "192.168.1.1")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	// 6th request should be rate limited
	req := httptest.NewRequest(fiber.MethodPost, "/tv", nil)
	req.Header.Set("X-Forwarded-For", "192.168.1.1")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestStreamTokenLimiterEnforcement(t *testing.T) {
	// Create mock Redis server
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	// Create Redis client
	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	defer func() {
		_ = rdb.Close()
	}()

	// Create rate limit config
	rateLimits := NewRateLimitConfig(testLimiterConfig(), rdb)

	// Create test Fiber app
	app := fiber.New()
	app.Post("/stream/token", rateLimits.StreamTokenLimiter, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	// Test stream token limiter (10 requests per 5 minutes)
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(fiber.MethodPost, "/stream/token", nil)
		req.Header.Set("X-Forwarded-For", "192.168.1.2")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	// 11th request should be rate limited
	req := httptest.NewRequest(fiber.MethodPost, "/stream/token", nil)
	req.Header.Set("X-Forwarded-For", "192.168.1.2")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestSignalsLimiterEnforcement(t *testing.T) {
	// Create mock Redis server
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	// Create Redis client
	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	defer func() {
		_ = rdb.Close()
	}()

	// Create rate limit config
	rateLimits := NewRateLimitConfig(testLimiterConfig(), rdb)

	// Create test Fiber app
	app := fiber.New()
	app.Get("/signals", rateLimits.SignalsLimiter, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	// Test signals limiter (30 requests per minute)
	for i := 0; i < 30; i++ {
		req := httptest.NewRequest(fiber.MethodGet, "/signals", nil)
		req.Header.Set("X-Forwarded-For", "192.168.1.5")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	// 31st request should be rate limited
	req := httptest.NewRequest(fiber.MethodGet, "/signals", nil)
	req.Header.Set("X-Forwarded-For", "192.168.1.5")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestDifferentIPsNotAffected(t *testing.T) {
	// Enable proxy header trust for testing
	utils.TrustProxyHeaders.Store(true)
	defer utils.TrustProxyHeaders.Store(false)

	// Create mock Redis server
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	// Create Redis client
	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	defer func() {
		_ = rdb.Close()
	}()

	// Create rate limit config
	rateLimits := NewRateLimitConfig(testLimiterConfig(), rdb)

	// Create test Fiber app
	app := fiber.New()
	app.Post("/tv", rateLimits.WebhookLimiter, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	// IP2 should be able to make requests (test first)
	req2 := httptest.NewRequest(fiber.MethodPost, "/tv", nil)
	req2.Header.Set("X-Forwarded-For", "203.0.113.200")
	resp2, err := app.Test(req2, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp2.StatusCode)

	// Max out requests from IP1
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(fiber.MethodPost, "/tv", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.100")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	// IP1 should now be rate limited
	req1 := httptest.NewRequest(fiber.MethodPost, "/tv", nil)
	req1.Header.Set("X-Forwarded-For", "203.0.113.100")
	resp1, err := app.Test(req1, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp1.StatusCode)

	// IP2 should still be able to make more requests
	req3 := httptest.NewRequest(fiber.MethodPost, "/tv", nil)
	req3.Header.Set("X-Forwarded-For", "203.0.113.200")
	resp3, err := app.Test(req3, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp3.StatusCode)
}

func BenchmarkWebhookLimiter(b *testing.B) {
	mr, err := miniredis.Run()
	require.NoError(b, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	defer func() {
		_ = rdb.Close()
	}()

	cfg := &config.Config{RateLimitMax: 1000000, RateLimitWindow: time.Minute}
	rateLimits := NewRateLimitConfig(cfg, rdb)
	app := fiber.New()
	app.Post("/tv", rateLimits.WebhookLimiter, func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest(fiber.MethodPost, "/tv", nil)
		req.Header.Set("X-Forwarded-For", "192.168.1.1")
		_, _ = app.Test(req, -1)
	}
}
