package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"tradewire/metrics"
	"tradewire/telegram"
)

// Reporter sends a periodic heartbeat to the Telegram chat so operators can
// tell a quiet market from a dead relay. It also carries the in-process
// relay counters that feed the /status endpoint.
type Reporter struct {
	botName  string
	notifier telegram.Notifier
	every    time.Duration
	started  time.Time

	relayed atomic.Int64

	mu         sync.Mutex
	lastReport time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewReporter creates a heartbeat reporter. An interval of zero disables
// reporting; counters still work.
func NewReporter(botName string, notifier telegram.Notifier, every time.Duration) *Reporter {
	return &Reporter{
		botName:  botName,
		notifier: notifier,
		every:    every,
		started:  time.Now(),
		stop:     make(chan struct{}),
	}
}

// Start launches the heartbeat loop in the background
func (r *Reporter) Start() {
	if r.every <= 0 || r.notifier == nil {
		log.Println("⏳ [REPORTER] Heartbeat reporting disabled")
		return
	}

	go func() {
		ticker := time.NewTicker(r.every)
		defer ticker.Stop()

		// First heartbeat right away so the chat sees the relay come online
		r.report()

		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				r.report()
			}
		}
	}()
}

// Stop terminates the heartbeat loop
func (r *Reporter) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
}

// NoteRelayed bumps the relayed-signal counter
func (r *Reporter) NoteRelayed() {
	r.relayed.Add(1)
}

// SignalsRelayed returns how many signals reached Telegram since boot
func (r *Reporter) SignalsRelayed() int64 {
	return r.relayed.Load()
}

// Uptime returns how long the relay has been running
func (r *Reporter) Uptime() time.Duration {
	return time.Since(r.started)
}

// CanReportNow reports whether a heartbeat would fire if the ticker ticked
// now. False when reporting is disabled.
func (r *Reporter) CanReportNow() bool {
	if r.every <= 0 {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastReport.IsZero() {
		return true
	}
	return time.Since(r.lastReport) >= r.every
}

// report sends one heartbeat message
func (r *Reporter) report() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	text := fmt.Sprintf("✅ %s online\n⏳ Uptime: %s\n📡 Signals relayed: %d",
		r.botName, r.Uptime().Truncate(time.Second), r.SignalsRelayed())

	if err := r.notifier.Notify(ctx, text); err != nil {
		metrics.RecordHeartbeat("failed")
		log.Printf("⚠️ [REPORTER] Heartbeat delivery failed: %v", err)
		return
	}

	metrics.RecordHeartbeat("delivered")
	r.mu.Lock()
	r.lastReport = time.Now()
	r.mu.Unlock()
}
