package config

import (
	"crypto/rand"
	"encoding/base64"
	"log"
	"net"
	neturl "net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	BotName        string
	TelegramToken  string
	TelegramChatID string
	TelegramAPIURL string
	WebhookSecret  string
	ReportEvery    time.Duration

	RedisURL      string
	RedisPassword string
	DatabaseURL   string

	// EncryptionKey is the decoded journal key; nil when at-rest encryption
	// is not configured.
	EncryptionKey []byte

	AdminToken     string
	StreamSecret   []byte
	StreamTokenTTL time.Duration

	DedupWindow     time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration

	TrustProxyHeaders bool
	Environment       string
}

// LoadConfig loads configuration from environment variables.
//
// Missing relay credentials (Telegram token/chat, webhook secret) are not
// fatal: the platform would only crash-loop the container. The webhook
// endpoint reports the misconfiguration per request instead.
func LoadConfig() *Config {
	token := strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN"))
	chatID := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID"))
	secret := strings.TrimSpace(os.Getenv("WEBHOOK_SECRET"))
	if token == "" || chatID == "" || secret == "" {
		log.Printf("⚠️  [CONFIG] TELEGRAM_TOKEN/TELEGRAM_CHAT_ID/WEBHOOK_SECRET not fully set - webhook delivery disabled until configured")
	}
	if secret != "" && len(secret) < 8 {
		log.Printf("⚠️  [CONFIG] WEBHOOK_SECRET is very short - anyone who guesses it can page your Telegram chat")
	}

	var encKey []byte
	if raw := strings.TrimSpace(os.Getenv("SERVER_ENCRYPTION_KEY")); raw != "" {
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			log.Fatalf("💥 [FATAL] SERVER_ENCRYPTION_KEY must be base64: %v", err)
		}
		if len(decoded) < 32 {
			log.Fatalf("💥 [FATAL] SERVER_ENCRYPTION_KEY must decode to at least 32 bytes, got %d", len(decoded))
		}
		encKey = decoded
	}

	streamSecret := []byte(os.Getenv("STREAM_TOKEN_SECRET"))
	if len(streamSecret) == 0 {
		streamSecret = make([]byte, 32)
		if _, err := rand.Read(streamSecret); err != nil {
			log.Fatalf("💥 [FATAL] Failed to generate stream token secret: %v", err)
		}
		log.Printf("⚠️  [CONFIG] STREAM_TOKEN_SECRET not set - using an ephemeral secret, stream tokens die with this process")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		// Coolify/Railway style Postgres add-on envs
		dbURL = buildDatabaseURLFromEnv()
	}

	return &Config{
		BotName:        GetEnvOrDefault("BOT_NAME", "OBSIDIAN GOLD PRIME"),
		TelegramToken:  token,
		TelegramChatID: chatID,
		TelegramAPIURL: GetEnvOrDefault("TELEGRAM_API_URL", "https://api.telegram.org"),
		WebhookSecret:  secret,
		ReportEvery:    time.Duration(GetEnvAsInt("REPORT_EVERY_MIN", 180)) * time.Minute,

		RedisURL:      normalizeRedisAddress(GetEnvOrDefault("REDIS_URL", "localhost:6379")),
		RedisPassword: resolveRedisPassword(os.Getenv("REDIS_URL"), os.Getenv("REDIS_PASSWORD")),
		DatabaseURL:   dbURL,

		EncryptionKey: encKey,

		AdminToken:     strings.TrimSpace(os.Getenv("ADMIN_TOKEN")),
		StreamSecret:   streamSecret,
		StreamTokenTTL: GetEnvAsDuration("STREAM_TOKEN_TTL", time.Minute),

		DedupWindow:     GetEnvAsDuration("DEDUP_WINDOW", 10*time.Second),
		RateLimitMax:    GetEnvAsInt("RATE_LIMIT_MAX", 60),
		RateLimitWindow: GetEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),

		TrustProxyHeaders: GetEnvAsBool("TRUST_PROXY_HEADERS", false),
		Environment:       GetEnvOrDefault("APP_ENV", "development"),
	}
}

// TelegramConfigured reports whether every variable the delivery path needs is set.
func (c *Config) TelegramConfigured() bool {
	return c.TelegramToken != "" && c.TelegramChatID != "" && c.WebhookSecret != ""
}

// JournalConfigured reports whether the delivery journal has a database to write to.
func (c *Config) JournalConfigured() bool {
	return c.DatabaseURL != ""
}

// GetEnvOrDefault returns environment variable value or default
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvAsBool parses environment variable as boolean
func GetEnvAsBool(key string, defaultValue bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		value = strings.ToLower(value)
		if value == "true" || value == "1" || value == "yes" {
			return true
		}
		if value == "false" || value == "0" || value == "no" {
			return false
		}
	}
	return defaultValue
}

// GetEnvAsInt parses environment variable as integer
func GetEnvAsInt(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvAsDuration parses environment variable as a Go duration.
// Bare integers are treated as seconds so "30" and "30s" mean the same thing.
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return defaultValue
}

// normalizeRedisAddress converts redis:// URLs into host[:port] that go-redis expects.
func normalizeRedisAddress(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return trimmed
	}
	if !strings.Contains(trimmed, "://") {
		return trimmed
	}
	u, err := neturl.Parse(trimmed)
	if err != nil {
		log.Printf("Warning: could not parse REDIS_URL '%s': %v", trimmed, err)
		return trimmed
	}
	if u.Host != "" {
		return u.Host
	}
	return trimmed
}

// resolveRedisPassword returns an explicit password if provided, otherwise pulls
// the password component from a redis:// URL when available.
func resolveRedisPassword(redisURL, explicit string) string {
	if explicit != "" {
		return explicit
	}
	trimmed := strings.TrimSpace(redisURL)
	if trimmed == "" || !strings.Contains(trimmed, "://") {
		return explicit
	}
	u, err := neturl.Parse(trimmed)
	if err != nil {
		return explicit
	}
	if u.User != nil {
		if pw, ok := u.User.Password(); ok && pw != "" {
			return pw
		}
	}
	return explicit
}

// buildDatabaseURLFromEnv builds a postgres URL from common env vars (Railway/Coolify/Postgres add-on style)
// Recognized: POSTGRESQL_* vars, Railway PG* vars, and POSTGRES_PASSWORD
func buildDatabaseURLFromEnv() string {
	host := strings.TrimSpace(os.Getenv("POSTGRESQL_HOST"))
	if host == "" {
		host = strings.TrimSpace(os.Getenv("PGHOST"))
	}
	user := strings.TrimSpace(os.Getenv("POSTGRESQL_USER"))
	if user == "" {
		user = strings.TrimSpace(os.Getenv("PGUSER"))
	}
	pass := os.Getenv("POSTGRESQL_PASSWORD") // may contain spaces/specials
	if pass == "" {
		pass = os.Getenv("PGPASSWORD")
	}
	if pass == "" {
		pass = os.Getenv("POSTGRES_PASSWORD")
	}
	db := strings.TrimSpace(os.Getenv("POSTGRESQL_DATABASE"))
	if db == "" {
		db = strings.TrimSpace(os.Getenv("PGDATABASE"))
	}
	if host == "" || user == "" || db == "" {
		return ""
	}
	port := strings.TrimSpace(os.Getenv("POSTGRESQL_PORT"))
	if port == "" {
		port = strings.TrimSpace(os.Getenv("PGPORT"))
	}
	if port == "" {
		port = "5432"
	}
	sslmode := strings.TrimSpace(os.Getenv("POSTGRESQL_SSLMODE"))
	if sslmode == "" {
		sslmode = strings.TrimSpace(os.Getenv("PGSSLMODE"))
	}
	if sslmode == "" {
		sslmode = "require"
	}
	u := &neturl.URL{
		Scheme: "postgres",
		User:   neturl.UserPassword(user, pass),
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + db,
	}
	q := neturl.Values{}
	q.Set("sslmode", sslmode)
	u.RawQuery = q.Encode()
	return u.String()
}
