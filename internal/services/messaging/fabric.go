// Package messaging implements the durable, at-least-once message fabric that
// connects the ingestion boundary and the agents.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"drishti-worker-go/internal/config"
)

var (
	ErrClosed       = errors.New("messaging: fabric closed")
	ErrEmptyTopic   = errors.New("messaging: empty topic")
	ErrEmptyDurable = errors.New("messaging: empty durable name")
)

// Publisher encodes v and publishes it to topic
type Publisher interface {
	Publish(ctx context.Context, topic string, v any) error
}

// Fabric publishes to named topics and hands out durable subscriptions.
// A message is redelivered until a subscriber acknowledges it or its
// delivery limit is reached.
type Fabric interface {
	Publisher
	// Subscribe attaches to the durable consumer group for topic. Subscribers
	// sharing a durable name split the messages between them.
	Subscribe(ctx context.Context, topic, durable string) (Subscription, error)
	IsConnected() bool
	Shutdown(ctx context.Context) error
}

// Subscription streams deliveries until stopped. The channel is closed after Stop.
type Subscription interface {
	Deliveries() <-chan Delivery
	Stop() error
}

// Delivery is one attempt at handing a message to a subscriber
type Delivery interface {
	Topic() string
	Data() []byte
	Decode(v any) error
	// Attempt is 1 on first delivery and grows with each redelivery.
	Attempt() int
	Ack() error
	// Nack asks for redelivery.
	Nack() error
}

// Options tunes delivery behaviour shared by every fabric implementation
type Options struct {
	Codec      Codec
	AckWait    time.Duration
	MaxDeliver int
	NakDelay   time.Duration
}

func (o Options) withDefaults() Options {
	if o.Codec == nil {
		o.Codec = JSON
	}
	if o.AckWait <= 0 {
		o.AckWait = 30 * time.Second
	}
	if o.MaxDeliver <= 0 {
		o.MaxDeliver = 5
	}
	return o
}

// New builds the fabric selected by cfg.Fabric
func New(ctx context.Context, cfg *config.Config) (Fabric, error) {
	codec, err := CodecByName(cfg.Codec)
	if err != nil {
		return nil, err
	}
	opts := Options{
		Codec:      codec,
		AckWait:    cfg.AckWait,
		MaxDeliver: cfg.MaxDeliver,
		NakDelay:   cfg.NakDelay,
	}

	switch cfg.Fabric {
	case "memory":
		return NewMemoryFabric(opts), nil
	case "", "nats":
		topics := []string{
			cfg.BottleneckTopic,
			cfg.AnomalyTopic,
			cfg.SummaryTopic,
			cfg.DispatchTopic,
			cfg.PushSubject,
		}
		return NewJetStreamFabric(ctx, cfg, topics, opts)
	default:
		return nil, fmt.Errorf("unknown message fabric %q", cfg.Fabric)
	}
}
