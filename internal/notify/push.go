package notify

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
)

// PushSender abstracts FCM so the sink can be tested without credentials.
type PushSender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// FCMSender sends pushes through Firebase Cloud Messaging.
type FCMSender struct {
	client *messaging.Client
}

// NewFCMSender creates an FCMSender.
func NewFCMSender(client *messaging.Client) *FCMSender {
	return &FCMSender{client: client}
}

func (s *FCMSender) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	_, err := s.client.Send(ctx, &messaging.Message{
		Token:        token,
		Notification: &messaging.Notification{Title: title, Body: body},
		Data:         data,
	})
	return err
}

// TokenSource lists a recipient's registered device tokens.
type TokenSource interface {
	GetTokensByUserID(userID uint) ([]string, error)
}

// PushSink mirrors per-recipient notification deliveries to mobile devices.
// Feed deliveries and recipientless payloads are ignored. Send failures are
// logged per token; the sink itself only errors when tokens can't be listed.
type PushSink struct {
	sender PushSender
	tokens TokenSource
	logger Logger
}

// NewPushSink creates a PushSink.
func NewPushSink(sender PushSender, tokens TokenSource, logger Logger) *PushSink {
	if logger == nil {
		logger = StdLogger{}
	}
	return &PushSink{sender: sender, tokens: tokens, logger: logger}
}

func (p *PushSink) Deliver(ctx context.Context, d Delivery) error {
	if d.RecipientID == 0 {
		return nil
	}
	payload, ok := d.Payload.(NotificationPayload)
	if !ok {
		return nil
	}

	tokens, err := p.tokens.GetTokensByUserID(d.RecipientID)
	if err != nil {
		return fmt.Errorf("list device tokens for %d: %w", d.RecipientID, err)
	}

	for _, token := range tokens {
		if err := p.sender.Send(ctx, token, "Driftline", payload.Message, map[string]string{
			"action":          payload.Action,
			"notifiable_id":   payload.Notifiable.ID,
			"notifiable_type": payload.Notifiable.Type,
		}); err != nil {
			p.logger.Warnf("push to device of user %d failed: %v", d.RecipientID, err)
		}
	}
	return nil
}
