package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftlinehq/driftline/backend/internal/notify"
)

func TestLocalBrokerDeliversToHub(t *testing.T) {
	hub := NewHub(notify.NoopLogger{})
	c := newTestClient(t, hub, 1)
	hub.Subscribe(c, "notifications:1")

	broker := NewLocalBroker(hub)
	err := broker.Publish("notifications:1", notify.NotificationPayload{
		Action:  "liked",
		Message: "alice liked your micropost",
	})
	require.NoError(t, err)

	msg := recvPayload(t, c)
	assert.Equal(t, "liked", msg["action"])
	assert.Equal(t, "alice liked your micropost", msg["message"])
}

func TestLocalBrokerWithoutSubscribers(t *testing.T) {
	hub := NewHub(notify.NoopLogger{})
	broker := NewLocalBroker(hub)
	assert.NoError(t, broker.Publish("notifications:9", notify.NotificationPayload{Action: "liked"}))
}

func TestBroadcastEnvelopeRoundTrip(t *testing.T) {
	payload, err := json.Marshal(notify.NotificationPayload{Action: "followed"})
	require.NoError(t, err)

	sent := envelope{
		Topic:     "notifications:2",
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
	data, err := json.Marshal(sent)
	require.NoError(t, err)

	var got envelope
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, sent.Topic, got.Topic)
	assert.JSONEq(t, string(sent.Payload), string(got.Payload))
}
