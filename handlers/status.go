package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"tradewire/config"
	"tradewire/services"
)

// StatusHandler serves the relay's public probes: the root hint, the PaaS
// health check and the operator status view.
type StatusHandler struct {
	config    *config.Config
	reporter  *services.Reporter
	startTime time.Time
}

// NewStatusHandler creates a new status handler. reporter may be nil when
// heartbeat reporting is disabled.
func NewStatusHandler(cfg *config.Config, reporter *services.Reporter, startTime time.Time) *StatusHandler {
	return &StatusHandler{config: cfg, reporter: reporter, startTime: startTime}
}

// Root answers GET / with a pointer at the real endpoints. TradingView setup
// guides tell users to "test the URL in a browser" and this is what they see.
func (h *StatusHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true, "hint": "Use /health or POST /tv"})
}

// Health answers GET /health, the platform's HTTP probe.
func (h *StatusHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"ok": true, "service": h.config.BotName})
}

// Status answers GET /status with relay counters and heartbeat state.
func (h *StatusHandler) Status(c *fiber.Ctx) error {
	canReport := false
	var relayed int64
	if h.reporter != nil {
		canReport = h.reporter.CanReportNow()
		relayed = h.reporter.SignalsRelayed()
	}

	return c.JSON(fiber.Map{
		"ok":               true,
		"service":          h.config.BotName,
		"report_every_min": int(h.config.ReportEvery / time.Minute),
		"can_report_now":   canReport,
		"signals_relayed":  relayed,
		"uptime_seconds":   int(time.Since(h.startTime).Seconds()),
	})
}
