package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// AdminAuth guards operator endpoints with a static bearer token. When no
// token is configured the endpoints stay closed rather than open.
func AdminAuth(adminToken string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if adminToken == "" {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "Admin endpoints disabled: ADMIN_TOKEN is not set",
			})
		}

		presented := bearerToken(c.Get(fiber.HeaderAuthorization))
		if presented == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing bearer token",
			})
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(adminToken)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid bearer token",
			})
		}

		return c.Next()
	}
}

// bearerToken extracts the credentials from an Authorization header,
// accepting any case for the Bearer scheme
func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
