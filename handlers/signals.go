package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"tradewire/database"
	"tradewire/utils"
)

// Signal listing bounds. TradingView fires at most a few alerts a minute, so
// a page of 200 covers hours of history.
const (
	defaultSignalLimit = 50
	maxSignalLimit     = 200
)

// SignalsHandler exposes the delivery journal to operators.
type SignalsHandler struct {
	journal *database.Journal
}

// NewSignalsHandler creates a new signals handler. journal may be nil when
// no database is configured; every request then answers 503.
func NewSignalsHandler(journal *database.Journal) *SignalsHandler {
	return &SignalsHandler{journal: journal}
}

// List answers GET /api/v1/signals with recent deliveries, newest first.
// ?limit=N caps the page (default 50, max 200); ?format=csv switches to a
// CSV export for spreadsheet post-mortems.
func (h *SignalsHandler) List(c *fiber.Ctx) error {
	if h.journal == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Delivery journal disabled: DATABASE_URL is not set",
		})
	}

	limit := defaultSignalLimit
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = utils.Min(parsed, maxSignalLimit)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	deliveries, err := h.journal.Recent(ctx, limit)
	if err != nil {
		utils.LogRequestError(c, "Journal query failed", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read delivery journal",
		})
	}

	if strings.EqualFold(c.Query("format"), "csv") {
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="signals.csv"`)
		return c.SendString(deliveriesCSV(deliveries))
	}

	resp := fiber.Map{
		"ok":      true,
		"count":   len(deliveries),
		"signals": deliveries,
	}
	if delivered, failed, err := h.journal.Stats(ctx); err == nil {
		resp["delivered_total"] = delivered
		resp["failed_total"] = failed
	} else {
		utils.LogError("Journal stats failed", err)
	}
	return c.JSON(resp)
}

func deliveriesCSV(deliveries []database.Delivery) string {
	var b strings.Builder
	b.WriteString("received_at,status,symbol,side,remote_ip,dedup_key,error,message\n")
	for _, d := range deliveries {
		row := []string{
			d.ReceivedAt.UTC().Format(time.RFC3339),
			d.Status,
			utils.CSVEscape(d.Symbol),
			utils.CSVEscape(d.Side),
			utils.CSVEscape(d.RemoteIP),
			d.DedupKey,
			utils.CSVEscape(d.Error),
			utils.CSVEscape(d.Message),
		}
		b.WriteString(strings.Join(row, ","))
		b.WriteByte('\n')
	}
	return b.String()
}
