package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/driftlinehq/driftline/backend/internal/notify"
)

// broadcastChannel is the Redis pub/sub channel all gateway nodes share.
const broadcastChannel = "realtime:broadcast"

// LocalBroker delivers publishes straight to the in-process hub. It is the
// single-node deployment and the test double in one.
type LocalBroker struct {
	hub *Hub
}

// NewLocalBroker creates a LocalBroker.
func NewLocalBroker(hub *Hub) *LocalBroker {
	return &LocalBroker{hub: hub}
}

// Publish implements notify.Broker.
func (b *LocalBroker) Publish(topic string, payload any) error {
	b.hub.Publish(topic, payload)
	return nil
}

// envelope is the wire format on the Redis channel.
type envelope struct {
	Topic     string          `json:"topic"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"ts"`
}

// RedisBroker fans publishes out across gateway nodes through Redis pub/sub.
// Every node publishes to and subscribes from one shared channel; each node
// delivers to its own local subscribers only.
type RedisBroker struct {
	rdb    *redis.Client
	hub    *Hub
	logger notify.Logger
	cancel context.CancelFunc
}

// NewRedisBroker connects to Redis and verifies the connection.
func NewRedisBroker(redisURL string, hub *Hub, logger notify.Logger) (*RedisBroker, error) {
	if logger == nil {
		logger = notify.StdLogger{}
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisBroker{rdb: rdb, hub: hub, logger: logger}, nil
}

// Publish implements notify.Broker. Errors surface to the dispatcher, which
// logs and moves on; a Redis outage never reaches a request handler.
func (b *RedisBroker) Publish(topic string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	data, err := json.Marshal(envelope{
		Topic:     topic,
		Payload:   raw,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	return b.rdb.Publish(context.Background(), broadcastChannel, data).Err()
}

// Run consumes the shared channel and feeds the local hub. Blocks until ctx
// is cancelled; call with go.
func (b *RedisBroker) Run(ctx context.Context) {
	ctx, b.cancel = context.WithCancel(ctx)
	sub := b.rdb.Subscribe(ctx, broadcastChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warnf("malformed broadcast envelope: %v", err)
				continue
			}
			b.hub.Publish(env.Topic, env.Payload)
		}
	}
}

// Close stops the subscriber loop and releases the Redis connection.
func (b *RedisBroker) Close() {
	if b.cancel != nil {
		b.cancel()
	}
	b.rdb.Close()
}
