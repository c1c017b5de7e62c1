package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// Mock notifier implementation for testing
type mockNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (m *mockNotifier) Notify(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, text)
	return nil
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

func (m *mockNotifier) last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return ""
	}
	return m.messages[len(m.messages)-1]
}

func TestReporterCounters(t *testing.T) {
	r := NewReporter("TEST BOT", &mockNotifier{}, time.Hour)

	if got := r.SignalsRelayed(); got != 0 {
		t.Errorf("Expected 0 relayed signals at boot, got %d", got)
	}

	r.NoteRelayed()
	r.NoteRelayed()
	r.NoteRelayed()

	if got := r.SignalsRelayed(); got != 3 {
		t.Errorf("Expected 3 relayed signals, got %d", got)
	}

	if r.Uptime() < 0 {
		t.Error("Uptime should never be negative")
	}
}

func TestReporterCanReportNow(t *testing.T) {
	t.Run("disabled reporter never reports", func(t *testing.T) {
		r := NewReporter("TEST BOT", &mockNotifier{}, 0)
		if r.CanReportNow() {
			t.Error("Expected CanReportNow to be false when reporting is disabled")
		}
	})

	t.Run("fresh reporter may report immediately", func(t *testing.T) {
		r := NewReporter("TEST BOT", &mockNotifier{}, time.Hour)
		if !r.CanReportNow() {
			t.Error("Expected CanReportNow to be true before the first heartbeat")
		}
	})

	t.Run("recent heartbeat blocks the next one", func(t *testing.T) {
		r := NewReporter("TEST BOT", &mockNotifier{}, time.Hour)
		r.report()
		if r.CanReportNow() {
			t.Error("Expected CanReportNow to be false right after a heartbeat")
		}
	})

	t.Run("stale heartbeat allows reporting again", func(t *testing.T) {
		r := NewReporter("TEST BOT", &mockNotifier{}, time.Hour)
		r.mu.Lock()
		r.lastReport = time.Now().Add(-2 * time.Hour)
		r.mu.Unlock()
		if !r.CanReportNow() {
			t.Error("Expected CanReportNow to be true after the interval elapsed")
		}
	})
}

func TestReporterHeartbeatContent(t *testing.T) {
	notifier := &mockNotifier{}
	r := NewReporter("OBSIDIAN GOLD PRIME", notifier, time.Hour)
	r.NoteRelayed()
	r.NoteRelayed()

	r.report()

	if notifier.count() != 1 {
		t.Fatalf("Expected 1 heartbeat, got %d", notifier.count())
	}

	msg := notifier.last()
	for _, want := range []string{"✅ OBSIDIAN GOLD PRIME online", "Uptime:", "Signals relayed: 2"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected heartbeat to contain %q, got %q", want, msg)
		}
	}
}

func TestReporterHeartbeatFailure(t *testing.T) {
	notifier := &mockNotifier{err: errors.New("telegram down")}
	r := NewReporter("TEST BOT", notifier, time.Hour)

	r.report()

	// A failed heartbeat must not consume the reporting window
	if !r.CanReportNow() {
		t.Error("Expected CanReportNow to stay true after a failed heartbeat")
	}
}

func TestReporterStartSendsInitialHeartbeat(t *testing.T) {
	notifier := &mockNotifier{}
	r := NewReporter("TEST BOT", notifier, time.Hour)

	r.Start()
	defer r.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for notifier.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if notifier.count() != 1 {
		t.Fatalf("Expected exactly 1 heartbeat after start, got %d", notifier.count())
	}
}

func TestReporterStartDisabled(t *testing.T) {
	notifier := &mockNotifier{}
	r := NewReporter("TEST BOT", notifier, 0)

	r.Start()
	time.Sleep(50 * time.Millisecond)

	if notifier.count() != 0 {
		t.Errorf("Expected no heartbeats from a disabled reporter, got %d", notifier.count())
	}

	// Stop is safe to call repeatedly, even when Start did nothing
	r.Stop()
	r.Stop()
}
