package server

import (
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"tradewire/config"
)

// ReadyState tracks initialization state for health checks. Redis and the
// delivery journal are optional components: a nil client means the component
// is disabled, while the ready flags mean initialization finished, whichever
// way it ended.
type ReadyState struct {
	db           *pgxpool.Pool
	rdb          *redis.Client
	config       *config.Config
	redisReady   atomic.Bool
	journalReady atomic.Bool
}

// NewReadyState creates a new ReadyState instance
func NewReadyState(db *pgxpool.Pool, cfg *config.Config, rdb *redis.Client) *ReadyState {
	return &ReadyState{
		db:     db,
		rdb:    rdb,
		config: cfg,
	}
}

// MarkRedisReady marks the Redis initialization as complete
func (r *ReadyState) MarkRedisReady() {
	r.redisReady.Store(true)
}

// MarkJournalReady marks the delivery journal initialization as complete
func (r *ReadyState) MarkJournalReady() {
	r.journalReady.Store(true)
}

// IsFullyReady returns true if all initialization steps are complete
func (r *ReadyState) IsFullyReady() bool {
	return r.redisReady.Load() && r.journalReady.Load()
}

// IsRedisReady returns true if Redis initialization is complete
func (r *ReadyState) IsRedisReady() bool {
	return r.redisReady.Load()
}

// IsJournalReady returns true if journal initialization is complete
func (r *ReadyState) IsJournalReady() bool {
	return r.journalReady.Load()
}

// GetDB returns the journal connection pool, nil when the journal is disabled
func (r *ReadyState) GetDB() *pgxpool.Pool {
	return r.db
}

// GetRedis returns the Redis client, nil when Redis is unavailable
func (r *ReadyState) GetRedis() *redis.Client {
	return r.rdb
}

// GetConfig returns the application configuration
func (r *ReadyState) GetConfig() *config.Config {
	return r.config
}
