package handlers

import (
	"github.com/gofiber/fiber/v2"

	"tradewire/config"
	"tradewire/middleware"
	"tradewire/utils"
)

// StreamHandler mints the short-lived tokens that gate the live signal feed.
type StreamHandler struct {
	config *config.Config
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(cfg *config.Config) *StreamHandler {
	return &StreamHandler{config: cfg}
}

// Token answers POST /api/v1/stream/token. The caller passes the token to
// GET /api/v1/stream?token=... and must reconnect with a fresh one after it
// expires; browsers cannot set headers on a WebSocket handshake, hence the
// query parameter hand-off.
func (h *StreamHandler) Token(c *fiber.Ctx) error {
	token, clientID, err := middleware.MintStreamToken(h.config.StreamSecret, h.config.StreamTokenTTL)
	if err != nil {
		utils.LogRequestError(c, "Stream token mint failed", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to mint stream token",
		})
	}

	return c.JSON(fiber.Map{
		"token":      token,
		"client_id":  clientID,
		"expires_in": int(h.config.StreamTokenTTL.Seconds()),
	})
}
