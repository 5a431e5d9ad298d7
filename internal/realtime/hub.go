package realtime

import (
	"encoding/json"

	"sync"

	"github.com/driftlinehq/driftline/backend/internal/notify"
)

// Hub is the topic registry shared by every live connection. It is the one
// piece of shared mutable state in the realtime path: subscribe, unsubscribe
// and publish are all safe to call concurrently, and publish never blocks on
// a slow connection.
//
// Overflow policy: each client has a bounded outbound buffer. When a publish
// finds that buffer full the client is disconnected; it reconnects and
// reconciles its state over REST. Publish never waits.
type Hub struct {
	mu      sync.RWMutex
	topics  map[string]map[*Client]struct{}
	clients map[*Client]struct{}
	logger  notify.Logger
}

// NewHub creates an empty Hub. One instance lives for the whole process and
// is passed to everything that publishes; there is no package-level state.
func NewHub(logger notify.Logger) *Hub {
	if logger == nil {
		logger = notify.StdLogger{}
	}
	return &Hub{
		topics:  make(map[string]map[*Client]struct{}),
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a connection to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debugf("client %s connected (user %d), total=%d", c.ID, c.UserID, h.ClientCount())
}

// Unregister removes a connection from every topic and closes its outbound
// channel. Safe to call more than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if c.closed {
		h.mu.Unlock()
		return
	}
	c.closed = true
	delete(h.clients, c)
	for topic := range c.topics {
		h.removeFromTopic(c, topic)
	}
	close(c.send)
	h.mu.Unlock()
	h.logger.Debugf("client %s disconnected (user %d), total=%d", c.ID, c.UserID, h.ClientCount())
}

// Subscribe adds the client to a topic. Subscribing twice is a no-op.
func (h *Hub) Subscribe(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	set, ok := h.topics[topic]
	if !ok {
		set = make(map[*Client]struct{})
		h.topics[topic] = set
	}
	set[c] = struct{}{}
	c.topics[topic] = struct{}{}
}

// Unsubscribe removes the client from a topic.
func (h *Hub) Unsubscribe(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromTopic(c, topic)
	delete(c.topics, topic)
}

// removeFromTopic must be called with h.mu held.
func (h *Hub) removeFromTopic(c *Client, topic string) {
	if set, ok := h.topics[topic]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.topics, topic)
		}
	}
}

// Publish delivers payload to every connection currently subscribed to
// topic and returns how many received it. Publishing to a topic with no
// subscribers is a silent success. Connections whose buffer is full are
// disconnected rather than waited on.
func (h *Hub) Publish(topic string, payload any) int {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Errorf("marshal payload for %s: %v", topic, err)
		return 0
	}

	// Sends happen under the read lock: Unregister closes c.send under the
	// write lock, so a send can never race the close. The sends are
	// non-blocking selects, so the lock is held only briefly.
	h.mu.RLock()
	delivered := 0
	var slow []*Client
	for c := range h.topics[topic] {
		select {
		case c.send <- data:
			delivered++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warnf("client %s (user %d) too slow on %s, disconnecting", c.ID, c.UserID, topic)
		h.Unregister(c)
	}

	return delivered
}

// SubscriberCount returns the number of live subscribers on a topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
