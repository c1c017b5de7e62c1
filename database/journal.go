package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"tradewire/crypto"
)

// Delivery outcomes recorded in the journal
const (
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

// Delivery is one journaled webhook outcome
type Delivery struct {
	ID         string    `json:"id"`
	DedupKey   string    `json:"dedup_key"`
	RemoteIP   string    `json:"remote_ip,omitempty"`
	Symbol     string    `json:"symbol,omitempty"`
	Side       string    `json:"side,omitempty"`
	Message    string    `json:"message"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// Journal records webhook outcomes in Postgres. With a crypto service
// attached the message text is encrypted at rest; without one it is stored
// as plaintext.
type Journal struct {
	db     Database
	crypto *crypto.CryptoService
}

// NewJournal creates a journal over the given database. The crypto service
// may be nil to disable at-rest encryption.
func NewJournal(db Database, cs *crypto.CryptoService) *Journal {
	return &Journal{db: db, crypto: cs}
}

// Record inserts one delivery outcome
func (j *Journal) Record(ctx context.Context, d Delivery) error {
	message := []byte(d.Message)
	encrypted := false
	if j.crypto != nil {
		ct, err := j.crypto.Encrypt(message)
		if err != nil {
			return fmt.Errorf("encrypt journal message: %w", err)
		}
		message = ct
		encrypted = true
	}

	_, err := j.db.Exec(ctx, `
		INSERT INTO deliveries (dedup_key, remote_ip, symbol, side, message, encrypted, status, error, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.DedupKey, d.RemoteIP, d.Symbol, d.Side, message, encrypted, d.Status, d.Error, d.ReceivedAt)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	return nil
}

// Recent returns the newest deliveries, most recent first
func (j *Journal) Recent(ctx context.Context, limit int) ([]Delivery, error) {
	rows, err := j.db.Query(ctx, `
		SELECT id::text, dedup_key, remote_ip, symbol, side, message, encrypted, status, error, received_at
		FROM deliveries
		ORDER BY received_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		var (
			d         Delivery
			message   []byte
			encrypted bool
		)
		if err := rows.Scan(&d.ID, &d.DedupKey, &d.RemoteIP, &d.Symbol, &d.Side, &message, &encrypted, &d.Status, &d.Error, &d.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}

		switch {
		case !encrypted:
			d.Message = string(message)
		case j.crypto == nil:
			// Rows written under a key we no longer have stay sealed
			log.Printf("⚠️ Journal row %s is encrypted but no encryption key is configured", d.ID)
			d.Message = "[encrypted]"
		default:
			plaintext, err := j.crypto.Decrypt(message)
			if err != nil {
				log.Printf("⚠️ Failed to decrypt journal row %s: %v", d.ID, err)
				d.Message = "[encrypted]"
			} else {
				d.Message = string(plaintext)
			}
		}

		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}
	return out, nil
}

// Stats returns delivered and failed totals across the whole journal
func (j *Journal) Stats(ctx context.Context) (delivered, failed int64, err error) {
	err = j.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'delivered'),
			COUNT(*) FILTER (WHERE status = 'failed')
		FROM deliveries`).Scan(&delivered, &failed)
	if err != nil {
		return 0, 0, fmt.Errorf("query delivery stats: %w", err)
	}
	return delivered, failed, nil
}
