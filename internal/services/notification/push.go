package notification

import (
	"context"
	"fmt"
	"time"

	"drishti-worker-go/internal/services/messaging"
)

// DefaultPushTopic is used when a notification names no device tokens
const DefaultPushTopic = "security_alerts"

// PushMessage is handed to the mobile push gateway
type PushMessage struct {
	Title     string            `json:"title" msgpack:"title"`
	Body      string            `json:"body" msgpack:"body"`
	Tokens    []string          `json:"tokens,omitempty" msgpack:"tokens,omitempty"`
	Topic     string            `json:"topic,omitempty" msgpack:"topic,omitempty"`
	Data      map[string]string `json:"data,omitempty" msgpack:"data,omitempty"`
	Timestamp time.Time         `json:"timestamp" msgpack:"timestamp"`
}

// PushSender publishes push notifications on the gateway subject
type PushSender struct {
	publisher messaging.Publisher
	subject   string
}

func NewPushSender(publisher messaging.Publisher, subject string) *PushSender {
	return &PushSender{publisher: publisher, subject: subject}
}

func (p *PushSender) Channel() Channel { return ChannelPush }

func (p *PushSender) Send(ctx context.Context, n Notification) error {
	msg := PushMessage{
		Title:     n.Subject,
		Body:      n.Body,
		Tokens:    n.Tokens,
		Data:      n.Data,
		Timestamp: time.Now().UTC(),
	}
	if n.Location != "" {
		msg.Body = "Location: " + n.Location + "\n" + n.Body
	}
	if len(msg.Tokens) == 0 {
		msg.Topic = DefaultPushTopic
	}

	if err := p.publisher.Publish(ctx, p.subject, msg); err != nil {
		return fmt.Errorf("publish push notification: %w", err)
	}
	return nil
}
