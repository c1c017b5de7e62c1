package websocket

// StreamMessage is the wire format pushed to live stream subscribers
type StreamMessage struct {
	Type       string `json:"type"`
	ID         string `json:"id,omitempty"`
	Symbol     string `json:"symbol,omitempty"`
	Side       string `json:"side,omitempty"`
	Text       string `json:"text,omitempty"`
	ReceivedAt string `json:"received_at,omitempty"`
}

// Message types pushed over the stream
const (
	TypeWelcome = "welcome"
	TypeSignal  = "signal"
)
