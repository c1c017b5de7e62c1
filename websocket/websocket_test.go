package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConnection() *Connection {
	return &Connection{
		ID:       uuid.New().String(),
		ClientID: uuid.New().String(),
		Conn:     nil, // Not needed for hub tests
		Send:     make(chan []byte, 256),
	}
}

// TestNewHub verifies that NewHub creates a properly initialized Hub
func TestNewHub(t *testing.T) {
	hub := NewHub()

	assert.NotNil(t, hub)
	assert.NotNil(t, hub.connections)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
	assert.Equal(t, 0, hub.ClientCount())
}

// TestHubRegisterConnection tests registering a new subscriber
func TestHubRegisterConnection(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	conn := testConnection()

	// Register the connection
	hub.RegisterConnection(conn)

	// Give the goroutine time to process
	time.Sleep(50 * time.Millisecond)

	// Verify the connection was registered
	assert.Equal(t, 1, hub.ClientCount())

	// Clean up
	hub.Stop()
	close(conn.Send)
}

// TestHubUnregisterConnection tests unregistering a subscriber
func TestHubUnregisterConnection(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	conn := testConnection()

	// Register then unregister
	hub.RegisterConnection(conn)
	time.Sleep(50 * time.Millisecond)

	hub.UnregisterConnection(conn)
	time.Sleep(50 * time.Millisecond)

	// Verify the connection was unregistered and its channel closed
	assert.Equal(t, 0, hub.ClientCount())
	_, open := <-conn.Send
	assert.False(t, open)

	// Clean up
	hub.Stop()
}

// TestHubUnregisterUnknownConnection verifies an unknown connection is a no-op
func TestHubUnregisterUnknownConnection(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	conn := testConnection()

	hub.UnregisterConnection(conn)
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 0, hub.ClientCount())

	// The channel must stay open: only registered connections are closed
	select {
	case conn.Send <- []byte("still open"):
	default:
		t.Fatal("Send channel should still accept writes")
	}

	// Clean up
	hub.Stop()
	close(conn.Send)
}

// TestBroadcastReachesAllSubscribers tests fan-out to every subscriber
func TestBroadcastReachesAllSubscribers(t *testing.T) {
	hub := NewHub()

	conn1 := testConnection()
	conn2 := testConnection()

	// Manually add connections (bypass Run() for this test)
	hub.mu.Lock()
	hub.connections[conn1.ID] = conn1
	hub.connections[conn2.ID] = conn2
	hub.mu.Unlock()

	// Broadcast a signal
	testMessage := StreamMessage{
		Type:       TypeSignal,
		ID:         "abc123",
		Symbol:     "XAUUSD",
		Side:       "BUY",
		Text:       "🤖 TEST\n\n🟢 BUY Signal: XAUUSD",
		ReceivedAt: time.Now().UTC().Format(time.RFC3339),
	}

	hub.Broadcast(testMessage)

	for _, conn := range []*Connection{conn1, conn2} {
		select {
		case raw := <-conn.Send:
			var received StreamMessage
			err := json.Unmarshal(raw, &received)
			require.NoError(t, err)
			assert.Equal(t, TypeSignal, received.Type)
			assert.Equal(t, "abc123", received.ID)
			assert.Equal(t, "XAUUSD", received.Symbol)
			assert.Equal(t, "BUY", received.Side)
		case <-time.After(100 * time.Millisecond):
			t.Fatal("Expected subscriber to receive the broadcast")
		}
	}

	// Clean up
	close(conn1.Send)
	close(conn2.Send)
}

// TestBroadcastDropsSlowSubscriber tests that a subscriber with a full
// buffer is removed instead of blocking the feed
func TestBroadcastDropsSlowSubscriber(t *testing.T) {
	hub := NewHub()

	slow := &Connection{
		ID:       uuid.New().String(),
		ClientID: uuid.New().String(),
		Conn:     nil,
		Send:     make(chan []byte), // unbuffered and never drained
	}
	healthy := testConnection()

	hub.mu.Lock()
	hub.connections[slow.ID] = slow
	hub.connections[healthy.ID] = healthy
	hub.mu.Unlock()

	hub.Broadcast(StreamMessage{Type: TypeSignal, ID: "drop-test"})

	// The slow subscriber is gone, the healthy one remains
	assert.Equal(t, 1, hub.ClientCount())

	select {
	case _, open := <-slow.Send:
		assert.False(t, open, "slow subscriber channel should be closed")
	default:
		t.Fatal("slow subscriber channel should be closed")
	}

	select {
	case <-healthy.Send:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Expected healthy subscriber to receive the broadcast")
	}

	// Clean up
	close(healthy.Send)
}

// TestClientCount tests subscriber counting across changes
func TestClientCount(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	assert.Equal(t, 0, hub.ClientCount())

	conn1 := testConnection()
	conn2 := testConnection()

	hub.RegisterConnection(conn1)
	hub.RegisterConnection(conn2)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, hub.ClientCount())

	hub.UnregisterConnection(conn1)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, hub.ClientCount())

	// Clean up
	hub.Stop()
	close(conn2.Send)
}

// TestStreamMessageShape tests the stream wire format
func TestStreamMessageShape(t *testing.T) {
	t.Run("Signal message carries all fields", func(t *testing.T) {
		msg := StreamMessage{
			Type:       TypeSignal,
			ID:         "f00d",
			Symbol:     "BTCUSDT",
			Side:       "SELL",
			Text:       "🤖 TEST",
			ReceivedAt: "2025-01-02T03:04:05Z",
		}

		data, err := json.Marshal(msg)
		require.NoError(t, err)

		var decoded StreamMessage
		err = json.Unmarshal(data, &decoded)
		require.NoError(t, err)
		assert.Equal(t, msg, decoded)
	})

	t.Run("Welcome message omits empty fields", func(t *testing.T) {
		data, err := json.Marshal(StreamMessage{Type: TypeWelcome})
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"welcome"}`, string(data))
	})
}

// TestConnectionLifecycle tests the full lifecycle of a subscriber
func TestConnectionLifecycle(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	conn := testConnection()

	// 1. Register
	hub.RegisterConnection(conn)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, hub.ClientCount())

	// 2. Receive a broadcast
	hub.Broadcast(StreamMessage{Type: TypeSignal, ID: "lifecycle"})
	select {
	case <-conn.Send:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Expected subscriber to receive the broadcast")
	}

	// 3. Unregister
	hub.UnregisterConnection(conn)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, hub.ClientCount())

	// Clean up
	hub.Stop()
}

// BenchmarkHubRegister benchmarks subscriber registration
func BenchmarkHubRegister(b *testing.B) {
	hub := NewHub()
	go hub.Run()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hub.RegisterConnection(testConnection())
	}
}

// BenchmarkBroadcast benchmarks signal fan-out to 10 subscribers
func BenchmarkBroadcast(b *testing.B) {
	hub := NewHub()

	hub.mu.Lock()
	for i := 0; i < 10; i++ {
		conn := &Connection{
			ID:       uuid.New().String(),
			ClientID: uuid.New().String(),
			Conn:     nil,
			Send:     make(chan []byte, 4096),
		}
		hub.connections[conn.ID] = conn
	}
	hub.mu.Unlock()

	testMessage := StreamMessage{
		Type:   TypeSignal,
		ID:     "bench",
		Symbol: "XAUUSD",
		Side:   "BUY",
		Text:   "benchmark signal",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		hub.Broadcast(testMessage)
	}
}
