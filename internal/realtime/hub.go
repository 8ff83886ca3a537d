// Package realtime pushes reservation events to connected staff boards
// over websockets. Clients subscribe to per-location topics.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/table-reservation/internal/queue"
)

// TopicAll receives every event regardless of location.
const TopicAll = "all"

// LocationTopic is the topic carrying one location's events.
func LocationTopic(id uint64) string { return "location:" + strconv.FormatUint(id, 10) }

// ValidTopic reports whether a client may subscribe to topic.
func ValidTopic(topic string) bool {
	if topic == TopicAll {
		return true
	}
	id, ok := strings.CutPrefix(topic, "location:")
	if !ok {
		return false
	}
	n, err := strconv.ParseUint(id, 10, 64)
	return err == nil && n > 0
}

// Message is the frame written to clients.
type Message struct {
	Topic     string    `json:"topic"`
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub tracks clients and their topic subscriptions.
type Hub struct {
	mu      sync.RWMutex
	topics  map[string]map[*Client]struct{}
	clients map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		topics:  make(map[string]map[*Client]struct{}),
		clients: make(map[*Client]struct{}),
	}
}

// Name identifies the hub among event publishers.
func (h *Hub) Name() string { return "ws" }

// Publish fans ev out to subscribers of its location and of TopicAll.
func (h *Hub) Publish(_ context.Context, ev queue.Event) error {
	topic := LocationTopic(ev.LocationID)
	data, err := json.Marshal(Message{Topic: topic, Type: ev.Name, Data: ev, Timestamp: time.Now().UTC()})
	if err != nil {
		return err
	}
	h.Broadcast(data, topic, TopicAll)
	return nil
}

// Broadcast sends a pre-encoded frame to every client subscribed to any of
// topics, once per client. A client whose buffer is full is detached.
func (h *Hub) Broadcast(data []byte, topics ...string) {
	var slow []*Client
	h.mu.RLock()
	seen := make(map[*Client]struct{})
	for _, t := range topics {
		for c := range h.topics[t] {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			if c.closed {
				continue
			}
			select {
			case c.send <- data:
			default:
				slow = append(slow, c)
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		slog.Warn("websocket client too slow, detaching", slog.String("user", c.userID))
		h.Detach(c)
	}
}

// Attach registers c and subscribes it to topics.
func (h *Hub) Attach(c *Client, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	h.clients[c] = struct{}{}
	for _, t := range topics {
		h.subscribeLocked(c, t)
	}
}

// Detach unsubscribes c everywhere and closes it.
func (h *Hub) Detach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic := range c.subscribed {
		h.removeLocked(c, topic)
	}
	delete(h.clients, c)
	c.close()
}

// Clients returns the number of attached clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Subscribers returns the number of clients on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

func (h *Hub) subscribe(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribeLocked(c, topic)
}

func (h *Hub) unsubscribe(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c, topic)
}

// subscribeLocked ignores closed clients: a ReadPump may still deliver a
// subscribe command after Broadcast has detached its client.
func (h *Hub) subscribeLocked(c *Client, topic string) {
	if c.closed {
		return
	}
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Client]struct{})
	}
	h.topics[topic][c] = struct{}{}
	c.subscribed[topic] = struct{}{}
}

func (h *Hub) removeLocked(c *Client, topic string) {
	if subs, ok := h.topics[topic]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
	delete(c.subscribed, topic)
}
