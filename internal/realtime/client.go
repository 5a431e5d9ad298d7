package realtime

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/driftlinehq/driftline/backend/internal/notify"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	// Pings must outrun the pong deadline
	pingPeriod = (pongWait * 9) / 10

	maxFrameSize   = 512
	sendBufferSize = 64
)

// Client is one live websocket connection. Its identity comes from the JWT
// presented at upgrade time, never from the frames it sends.
type Client struct {
	ID     string
	UserID uint

	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// topics and closed are guarded by hub.mu
	topics map[string]struct{}
	closed bool
}

// NewClient wraps an upgraded connection. conn may be nil in tests that
// exercise the hub without pumps.
func NewClient(hub *Hub, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		topics: make(map[string]struct{}),
	}
}

// controlFrame is the only inbound message shape clients may send.
type controlFrame struct {
	Action string `json:"action"` // subscribe, unsubscribe
	Topic  string `json:"topic"`
}

// readPump consumes inbound frames until the connection drops. Clients may
// only manage their subscription to the public firehose; per-user topics are
// derived server-side at connect time so nobody can watch another user's
// stream.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame controlFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		if frame.Topic != notify.FirehoseTopic {
			continue
		}

		switch frame.Action {
		case "subscribe":
			c.hub.Subscribe(c, frame.Topic)
		case "unsubscribe":
			c.hub.Unsubscribe(c, frame.Topic)
		}
	}
}

// writePump flushes the outbound buffer and keeps the connection alive with
// pings. It exits when the hub closes the send channel or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
