package database

// DatabaseSchema contains the complete PostgreSQL schema for the delivery journal.
// The journal is append-mostly: one row per webhook that made it past dedup,
// whether the Telegram delivery succeeded or not.
const DatabaseSchema = `
-- Enable required extensions
CREATE EXTENSION IF NOT EXISTS "pgcrypto";

-- Delivery journal
CREATE TABLE IF NOT EXISTS deliveries (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    dedup_key TEXT NOT NULL, -- SHA-256 over the normalized payload
    remote_ip TEXT NOT NULL DEFAULT '',
    symbol TEXT NOT NULL DEFAULT '',
    side TEXT NOT NULL DEFAULT '',
    message BYTEA NOT NULL, -- Formatted Telegram text, encrypted at rest when a key is configured
    encrypted BOOLEAN NOT NULL DEFAULT false,
    status TEXT NOT NULL, -- 'delivered' or 'failed'
    error TEXT NOT NULL DEFAULT '',
    received_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- Recent-first listing is the only hot query path
CREATE INDEX IF NOT EXISTS idx_deliveries_received_at ON deliveries(received_at DESC);

-- Duplicate forensics: find every delivery attempt for one alert
CREATE INDEX IF NOT EXISTS idx_deliveries_dedup_key ON deliveries(dedup_key);

-- Status breakdowns for the operator endpoints
CREATE INDEX IF NOT EXISTS idx_deliveries_status ON deliveries(status);

-- Migration bookkeeping lookups
CREATE INDEX IF NOT EXISTS idx_migrations_version ON _migrations(version);
`
