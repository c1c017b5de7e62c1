// tradewire - TradingView webhook relay
//
// Receives TradingView alert webhooks on POST /tv, verifies the shared
// secret, and forwards the formatted signal to a Telegram chat. Optional
// Redis backs duplicate suppression and shared rate-limit state; optional
// PostgreSQL keeps an encrypted delivery journal; authenticated WebSocket
// clients get every relayed signal live.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"tradewire/config"
	"tradewire/crypto"
	"tradewire/database"
	"tradewire/server"
	"tradewire/services"
	"tradewire/telegram"
	"tradewire/utils"
	websocketpkg "tradewire/websocket"
)

func main() {
	// Initialize logging
	utils.InitLogging()

	// Track application start time for uptime calculation
	startTime := time.Now()

	// The entrypoint resolves the listen address once and hands it down as
	// flags; a server run by hand falls back to the same PORT resolution.
	host := flag.String("host", "", "listen host")
	port := flag.Int("port", 0, "listen port")
	flag.Parse()

	bind, err := resolveBind(*host, *port)
	if err != nil {
		log.Fatalf("💥 [FATAL] %v", err)
	}

	cfg := config.LoadConfig()
	utils.TrustProxyHeaders.Store(cfg.TrustProxyHeaders)

	log.Printf("🚀 [STARTING] %s relay initializing for %s", cfg.BotName, bind.Addr())

	// Redis backs dedup and shared limiter state. The relay stays useful
	// without it, each instance just keeps process-local counters.
	rdb := connectRedis(cfg)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	// Optional at-rest encryption for journal rows
	var cryptoService *crypto.CryptoService
	if len(cfg.EncryptionKey) > 0 {
		cryptoService, err = crypto.NewCryptoService(cfg.EncryptionKey)
		if err != nil {
			log.Fatalf("💥 [FATAL] SERVER_ENCRYPTION_KEY rejected: %v", err)
		}
		log.Printf("✅ [CRYPTO] Journal at-rest encryption enabled")
	}

	// Optional delivery journal. Configured-but-unreachable is fatal: the
	// operator asked for an audit trail, silently dropping it is worse than
	// a crash loop they will see.
	var db *pgxpool.Pool
	var journal *database.Journal
	if cfg.JournalConfigured() {
		db, err = database.SetupDatabase(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("💥 [FATAL] Journal database setup failed: %v", err)
		}
		defer db.Close()
		journal = database.NewJournal(db, cryptoService)
		if cryptoService == nil {
			log.Printf("⚠️  [JOURNAL] SERVER_ENCRYPTION_KEY not set - delivery rows stored in plaintext")
		}
	} else {
		log.Printf("⚠️  [JOURNAL] DATABASE_URL not set - delivery journal disabled")
	}

	notifier := telegram.NewClient(cfg.TelegramToken, cfg.TelegramChatID, cfg.TelegramAPIURL)
	if cfg.TelegramConfigured() {
		log.Printf("✅ [TELEGRAM] Relay configured for chat %s", cfg.TelegramChatID)
	} else {
		log.Printf("⚠️  [TELEGRAM] Delivery unconfigured - POST /tv answers 500 until the env vars are set")
	}

	hub := websocketpkg.NewHub()
	go hub.Run()

	// The reporter always exists so /status can answer; it only ticks when
	// there is a chat to report into.
	reporter := services.NewReporter(cfg.BotName, notifier, cfg.ReportEvery)
	if cfg.TelegramConfigured() {
		reporter.Start()
	}

	readyState := server.NewReadyState(db, cfg, rdb)
	readyState.MarkRedisReady()
	readyState.MarkJournalReady()

	app := server.CreateFiberApp(startTime, readyState)
	setupRoutes(app, cfg, notifier, rdb, journal, hub, reporter, startTime)

	if err := server.ListenWithIPv6Fallback(app, bind, startTime); err != nil {
		log.Fatalf("💥 [FATAL] Server failed to start: %v", err)
	}
}

// resolveBind prefers the explicit flags the entrypoint passes and falls
// back to environment resolution for standalone runs.
func resolveBind(host string, port int) (config.BindConfig, error) {
	if port == 0 && host == "" {
		return config.ResolveBindFromEnv()
	}
	if port <= 0 || port > 65535 {
		return config.BindConfig{}, fmt.Errorf("flag -port %d is out of range (1-65535)", port)
	}
	if host == "" {
		host = config.WildcardHost
	}
	return config.BindConfig{Host: host, Port: port}, nil
}

// connectRedis dials Redis and verifies it answers. A dead Redis downgrades
// to nil so dedup and limiter storage fall back to process-local behavior
// instead of erroring on every request.
func connectRedis(cfg *config.Config) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0, // use default DB
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		utils.LogError("Redis unreachable, continuing without it", err, "addr", cfg.RedisURL)
		_ = rdb.Close()
		return nil
	}

	log.Printf("✅ [REDIS] Connected to %s", cfg.RedisURL)
	return rdb
}
