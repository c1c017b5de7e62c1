// Package telegram delivers relay messages to a Telegram chat through the
// Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Notifier delivers a formatted message to the configured chat.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Client talks to the Telegram Bot API over HTTP. The zero value is not
// usable; construct it with NewClient.
type Client struct {
	token  string
	chatID string
	apiURL string
	http   *http.Client
}

type sendMessageRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
	// Alert notes routinely contain chart links; previews would bury the
	// signal under a screenshot.
	DisableWebPagePreview bool `json:"disable_web_page_preview"`
}

// NewClient creates a Telegram client for one bot and chat. apiURL is the API
// origin, normally https://api.telegram.org; tests and self-hosted Bot API
// gateways point it elsewhere.
func NewClient(token, chatID, apiURL string) *Client {
	return &Client{
		token:  token,
		chatID: chatID,
		apiURL: strings.TrimRight(apiURL, "/"),
		http:   &http.Client{Timeout: 20 * time.Second},
	}
}

// Notify sends one message to the configured chat. A non-200 answer from the
// API is an error carrying the status and response body.
func (c *Client) Notify(ctx context.Context, text string) error {
	if c.token == "" {
		return fmt.Errorf("telegram: TELEGRAM_TOKEN is missing")
	}
	if c.chatID == "" {
		return fmt.Errorf("telegram: TELEGRAM_CHAT_ID is missing")
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:                c.chatID,
		Text:                  text,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("telegram: marshal sendMessage: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.apiURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telegram: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram: send message: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("telegram: API failed: %d %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
