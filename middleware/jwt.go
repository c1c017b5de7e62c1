package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MintStreamToken issues a short-lived HS256 token for the live signal
// stream. The returned client ID is embedded as the subject claim so stream
// connections can be traced back to the mint request.
func MintStreamToken(secret []byte, ttl time.Duration) (string, string, error) {
	clientID := uuid.New().String()
	now := time.Now()

	claims := jwt.MapClaims{
		"sub": clientID,
		"aud": "stream",
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", "", fmt.Errorf("sign stream token: %w", err)
	}
	return token, clientID, nil
}

// ValidateStreamToken checks a stream token and returns the client ID it
// was minted for
func ValidateStreamToken(secret []byte, token string) (string, error) {
	parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithAudience("stream"))
	if err != nil {
		return "", err
	}
	if !parsed.Valid {
		return "", fmt.Errorf("invalid stream token")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims type")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("missing sub claim")
	}
	return sub, nil
}

// StreamAuth validates the token query parameter on stream upgrade requests
// and stores the client ID in the request context. Browsers cannot set
// headers on WebSocket dials, so the token rides in the query string.
func StreamAuth(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Query("token")
		if token == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Missing stream token"})
		}

		clientID, err := ValidateStreamToken(secret, token)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid stream token"})
		}

		c.Locals("client_id", clientID)
		return c.Next()
	}
}
