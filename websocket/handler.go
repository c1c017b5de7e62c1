package websocket

import (
	"encoding/json"
	"log"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// HandleStream manages one subscriber connection on the live signal stream.
// Token validation happens in the upgrade middleware before this runs; the
// client ID it extracted rides in on the connection locals.
func HandleStream(c *websocket.Conn, hub *Hub) {
	defer c.Close()

	clientID, _ := c.Locals("client_id").(string)
	if clientID == "" {
		log.Printf("Stream connection rejected: no client ID on upgrade")
		return
	}

	conn := &Connection{
		ID:       uuid.New().String(),
		ClientID: clientID,
		Conn:     c,
		Send:     make(chan []byte, 256),
	}

	hub.RegisterConnection(conn)

	// Greet the subscriber so clients can confirm the feed is live
	if welcome, err := json.Marshal(StreamMessage{Type: TypeWelcome}); err == nil {
		conn.Send <- welcome
	}

	// Writer drains the send buffer until the hub closes it. Closing the
	// socket on a write error unblocks the reader below.
	go func() {
		defer c.Close()

		for message := range conn.Send {
			if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Stream write error: %v", err)
				return
			}
		}
		_ = c.WriteMessage(websocket.CloseMessage, []byte{})
	}()

	// The feed is one-way; the read loop only drains control frames and
	// detects the peer going away
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("Stream read error: %v", err)
			}
			break
		}
	}

	hub.UnregisterConnection(conn)
}
