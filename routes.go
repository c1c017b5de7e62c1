package main

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"time"

	fiberws "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"tradewire/config"
	"tradewire/database"
	"tradewire/handlers"
	"tradewire/metrics"
	"tradewire/middleware"
	"tradewire/server"
	"tradewire/services"
	"tradewire/telegram"
	websocketpkg "tradewire/websocket"
)

// setupRoutes configures all routes and per-route middleware for the relay.
// The health probes are registered by server.CreateFiberApp; everything else
// lives here.
func setupRoutes(app *fiber.App, cfg *config.Config, notifier telegram.Notifier, rdb *redis.Client, journal *database.Journal, hub *websocketpkg.Hub, reporter *services.Reporter, startTime time.Time) {
	// Operator dashboards poll /status and the signals listing from the
	// browser; TradingView itself never preflights.
	app.Use(cors.New())

	metricsEnabled := config.GetEnvAsBool("ENABLE_METRICS", true)
	if metricsEnabled {
		app.Use(metrics.PrometheusMiddleware())
	}

	rateLimits := middleware.NewRateLimitConfig(cfg, rdb)

	webhookHandler := handlers.NewWebhookHandler(cfg, notifier, rdb, journal, hub, reporter)
	statusHandler := handlers.NewStatusHandler(cfg, reporter, startTime)
	signalsHandler := handlers.NewSignalsHandler(journal)
	streamHandler := handlers.NewStreamHandler(cfg)

	// Public surface, shaped for TradingView and PaaS probes
	app.Get("/", rateLimits.LightweightLimiter, statusHandler.Root)
	app.Get("/health", rateLimits.LightweightLimiter, statusHandler.Health)
	app.Get("/status", rateLimits.LightweightLimiter, statusHandler.Status)
	app.Post("/tv", rateLimits.WebhookLimiter, webhookHandler.Handle)

	// Operator API
	api := app.Group("/api/v1")
	adminAuth := middleware.AdminAuth(cfg.AdminToken)
	api.Get("/signals", rateLimits.SignalsLimiter, adminAuth, signalsHandler.List)
	api.Post("/stream/token", rateLimits.StreamTokenLimiter, adminAuth, streamHandler.Token)

	// Live signal feed: short-lived token in the query string, then upgrade
	api.Use("/stream", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	api.Get("/stream", middleware.StreamAuth(cfg.StreamSecret), fiberws.New(func(conn *fiberws.Conn) {
		websocketpkg.HandleStream(conn, hub)
	}))

	// Prometheus metrics endpoint (if enabled)
	if metricsEnabled {
		app.Get("/metrics", func(c *fiber.Ctx) error {
			req := &http.Request{
				Method:     c.Method(),
				URL:        &url.URL{Path: c.Path(), RawQuery: string(c.Request().URI().QueryString())},
				Header:     make(http.Header),
				Body:       io.NopCloser(bytes.NewReader(c.Body())),
				Host:       string(c.Request().Host()),
				RequestURI: c.OriginalURL(),
			}
			c.Request().Header.VisitAll(func(key, value []byte) {
				req.Header.Add(string(key), string(value))
			})

			promhttp.Handler().ServeHTTP(server.NewFiberResponseWriter(c), req)
			return nil
		})
	}
}
