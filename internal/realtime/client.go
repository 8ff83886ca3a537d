package realtime

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	pingEvery   = 30 * time.Second
	readTimeout = 60 * time.Second
	writeWait   = 5 * time.Second
)

// Client is one websocket connection. subscribed and closed are guarded
// by the hub lock.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	userID     string
	subscribed map[string]struct{}
	closed     bool
}

type command struct {
	Action string `json:"action"`
	Topic  string `json:"topic"`
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string, buf int) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, buf),
		userID:     userID,
		subscribed: make(map[string]struct{}),
	}
}

// close must be called with the hub lock held.
func (c *Client) close() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

// Send queues a message without blocking. It reports false when the
// buffer is full.
func (c *Client) Send(msg Message) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		return false
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// WritePump writes queued frames and pings until the client is closed.
func (c *Client) WritePump() {
	ping := time.NewTicker(pingEvery)
	defer ping.Stop()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Debug("websocket write failed", slog.String("user", c.userID), slog.Any("err", err))
				go c.hub.Detach(c)
				return
			}
		case <-ping.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				go c.hub.Detach(c)
				return
			}
		}
	}
}

// ReadPump handles subscribe, unsubscribe and ping commands until the
// connection fails, then detaches the client.
func (c *Client) ReadPump() {
	defer c.hub.Detach(c)
	c.conn.SetReadLimit(1 << 12)
	_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})
	for {
		var cmd command
		if err := c.conn.ReadJSON(&cmd); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("websocket read ended", slog.String("user", c.userID), slog.Any("err", err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
		c.handle(cmd)
	}
}

func (c *Client) handle(cmd command) {
	topic := strings.TrimSpace(cmd.Topic)
	now := time.Now().UTC()
	switch strings.ToLower(strings.TrimSpace(cmd.Action)) {
	case "subscribe":
		if !ValidTopic(topic) {
			c.Send(Message{Topic: "system", Type: "system.error", Data: "unknown topic " + topic, Timestamp: now})
			return
		}
		c.hub.subscribe(c, topic)
		c.Send(Message{Topic: "system", Type: "system.subscribed", Data: topic, Timestamp: now})
	case "unsubscribe":
		c.hub.unsubscribe(c, topic)
		c.Send(Message{Topic: "system", Type: "system.unsubscribed", Data: topic, Timestamp: now})
	case "ping":
		c.Send(Message{Topic: "system", Type: "system.pong", Timestamp: now})
	default:
		c.Send(Message{Topic: "system", Type: "system.error", Data: "unknown action", Timestamp: now})
	}
}
