// Package handlers implements the relay's HTTP surface: the TradingView
// webhook, status and health probes, journal queries and stream token
// minting.
package handlers

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tradewire/alert"
	"tradewire/config"
	"tradewire/database"
	"tradewire/metrics"
	"tradewire/services"
	"tradewire/telegram"
	"tradewire/utils"
	"tradewire/websocket"
)

// WebhookHandler drives the alert pipeline: parse, authenticate, dedup,
// deliver, then fan out to the journal and the live stream.
type WebhookHandler struct {
	config   *config.Config
	notifier telegram.Notifier
	rdb      *redis.Client
	journal  *database.Journal
	hub      *websocket.Hub
	reporter *services.Reporter
}

// NewWebhookHandler creates a new webhook handler. rdb, journal, hub and
// reporter may each be nil; the corresponding side effect is skipped.
func NewWebhookHandler(cfg *config.Config, notifier telegram.Notifier, rdb *redis.Client, journal *database.Journal, hub *websocket.Hub, reporter *services.Reporter) *WebhookHandler {
	return &WebhookHandler{
		config:   cfg,
		notifier: notifier,
		rdb:      rdb,
		journal:  journal,
		hub:      hub,
		reporter: reporter,
	}
}

// Handle processes POST /tv. Response codes and bodies are part of the
// public contract: alert authors see them in TradingView's webhook log.
func (h *WebhookHandler) Handle(c *fiber.Ctx) error {
	if !h.config.TelegramConfigured() {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Server env vars missing (TELEGRAM_TOKEN/TELEGRAM_CHAT_ID/WEBHOOK_SECRET).",
		})
	}

	payload := alert.Parse(c.Get(fiber.HeaderContentType), c.Body())
	secret, payload := alert.ExtractSecret(payload)
	if secret == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Missing secret in webhook payload.",
		})
	}
	if subtle.ConstantTimeCompare([]byte(secret), []byte(strings.TrimSpace(h.config.WebhookSecret))) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid secret.",
		})
	}

	metrics.IncrementSignalReceived()

	dedupKey := alert.Key(payload)
	if h.suppressDuplicate(dedupKey) {
		metrics.IncrementSignalSuppressed()
		return c.JSON(fiber.Map{"ok": true, "deduplicated": true})
	}

	text := alert.Format(h.config.BotName, payload)
	receivedAt := time.Now().UTC()
	remoteIP := utils.ClientIP(c)

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	start := time.Now()
	err := h.notifier.Notify(ctx, text)
	metrics.ObserveTelegramDuration(time.Since(start))

	if err != nil {
		metrics.RecordSignalRelayed("failed")
		utils.LogError("Telegram delivery failed", err, "symbol", alert.Symbol(payload))
		h.recordDelivery(database.Delivery{
			DedupKey:   dedupKey,
			RemoteIP:   remoteIP,
			Symbol:     alert.Symbol(payload),
			Side:       alert.Side(payload),
			Message:    text,
			Status:     database.StatusFailed,
			Error:      err.Error(),
			ReceivedAt: receivedAt,
		})
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to send Telegram message: " + err.Error(),
		})
	}

	metrics.RecordSignalRelayed("delivered")
	if h.reporter != nil {
		h.reporter.NoteRelayed()
	}
	h.recordDelivery(database.Delivery{
		DedupKey:   dedupKey,
		RemoteIP:   remoteIP,
		Symbol:     alert.Symbol(payload),
		Side:       alert.Side(payload),
		Message:    text,
		Status:     database.StatusDelivered,
		ReceivedAt: receivedAt,
	})
	if h.hub != nil {
		h.hub.Broadcast(websocket.StreamMessage{
			Type:       websocket.TypeSignal,
			ID:         uuid.New().String(),
			Symbol:     alert.Symbol(payload),
			Side:       alert.Side(payload),
			Text:       text,
			ReceivedAt: receivedAt.Format(time.RFC3339),
		})
	}

	return c.JSON(fiber.Map{"ok": true})
}

// suppressDuplicate reports whether this fingerprint was already seen inside
// the dedup window. Requires Redis; without it (or with a zero window) every
// alert is treated as fresh. Redis errors relay anyway, a double message
// beats a dropped one.
func (h *WebhookHandler) suppressDuplicate(dedupKey string) bool {
	if h.rdb == nil || h.config.DedupWindow <= 0 {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	metrics.IncrementRedisOperation("dedup_setnx")
	fresh, err := h.rdb.SetNX(ctx, "dedup:"+dedupKey, 1, h.config.DedupWindow).Result()
	if err != nil {
		utils.LogError("Dedup check failed, relaying anyway", err)
		return false
	}
	return !fresh
}

// recordDelivery journals one delivery attempt. Best effort: journal
// problems are logged and counted, the webhook response never depends on
// them.
func (h *WebhookHandler) recordDelivery(d database.Delivery) {
	if h.journal == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := h.journal.Record(ctx, d); err != nil {
		metrics.IncrementJournalError()
		utils.LogError("Journal write failed", err, "dedup_key", d.DedupKey)
	}
}
