package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"drishti-worker-go/internal/config"
)

// JetStreamFabric backs every topic with one JetStream stream and every
// durable subscriber group with a durable pull consumer.
type JetStreamFabric struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	stream string
	opts   Options
	cfg    *config.Config
}

func NewJetStreamFabric(ctx context.Context, cfg *config.Config, topics []string, opts Options) (*JetStreamFabric, error) {
	natsOpts := []nats.Option{
		nats.Name("drishti-worker-" + cfg.WorkerID),
		nats.Timeout(cfg.NatsConnectTimeout),
		nats.ReconnectWait(cfg.NatsReconnectWait),
		nats.MaxReconnects(cfg.NatsMaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	conn, err := nats.Connect(cfg.NatsURL, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      cfg.StreamName,
		Subjects:  topics,
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create stream %s: %w", cfg.StreamName, err)
	}

	log.Info().
		Str("url", cfg.NatsURL).
		Str("stream", cfg.StreamName).
		Strs("subjects", topics).
		Msg("NATS JetStream connection established")

	return &JetStreamFabric{
		conn:   conn,
		js:     js,
		stream: cfg.StreamName,
		opts:   opts.withDefaults(),
		cfg:    cfg,
	}, nil
}

func (f *JetStreamFabric) Publish(ctx context.Context, topic string, v any) error {
	if topic == "" {
		return ErrEmptyTopic
	}
	payload, err := f.opts.Codec.Marshal(v)
	if err != nil {
		return err
	}

	msg := nats.NewMsg(topic)
	msg.Data = payload
	msg.Header.Set(HeaderContentType, f.opts.Codec.ContentType())

	if _, err := f.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (f *JetStreamFabric) Subscribe(ctx context.Context, topic, durable string) (Subscription, error) {
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	if durable == "" {
		return nil, ErrEmptyDurable
	}

	cons, err := f.js.CreateOrUpdateConsumer(ctx, f.stream, jetstream.ConsumerConfig{
		Durable:       durable,
		FilterSubject: topic,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       f.opts.AckWait,
		MaxDeliver:    f.opts.MaxDeliver,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer %s on %s: %w", durable, topic, err)
	}

	sub := &jsSubscription{
		out:      make(chan Delivery),
		done:     make(chan struct{}),
		nakDelay: f.opts.NakDelay,
	}

	cc, err := cons.Consume(sub.handle)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", topic, err)
	}
	sub.cc = cc

	log.Info().Str("topic", topic).Str("durable", durable).Msg("JetStream consumer attached")
	return sub, nil
}

func (f *JetStreamFabric) IsConnected() bool {
	return f.conn != nil && f.conn.IsConnected()
}

func (f *JetStreamFabric) Shutdown(ctx context.Context) error {
	if f.conn != nil {
		// Try graceful drain with timeout, fallback to immediate close
		if err := f.conn.Drain(); err != nil {
			log.Warn().Err(err).Msg("Failed to drain NATS connection gracefully, closing immediately")
			f.conn.Close()
		}
	}
	return nil
}

type jsSubscription struct {
	cc       jetstream.ConsumeContext
	out      chan Delivery
	done     chan struct{}
	nakDelay time.Duration

	mu      sync.RWMutex
	stopped bool
	once    sync.Once
}

func (s *jsSubscription) Deliveries() <-chan Delivery { return s.out }

// handle runs on the consumer's callback goroutine and blocks until a worker
// takes the message, which keeps the pull consumer from buffering ahead.
func (s *jsSubscription) handle(msg jetstream.Msg) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.stopped {
		_ = msg.Nak()
		return
	}

	select {
	case s.out <- &jsDelivery{msg: msg, nakDelay: s.nakDelay}:
	case <-s.done:
		_ = msg.Nak()
	}
}

func (s *jsSubscription) Stop() error {
	s.once.Do(func() {
		if s.cc != nil {
			s.cc.Stop()
		}
		close(s.done)

		s.mu.Lock()
		s.stopped = true
		close(s.out)
		s.mu.Unlock()
	})
	return nil
}

type jsDelivery struct {
	msg      jetstream.Msg
	nakDelay time.Duration
}

func (d *jsDelivery) Topic() string { return d.msg.Subject() }
func (d *jsDelivery) Data() []byte  { return d.msg.Data() }

func (d *jsDelivery) Decode(v any) error {
	var ct string
	if h := d.msg.Headers(); h != nil {
		ct = h.Get(HeaderContentType)
	}
	return codecForContentType(ct).Unmarshal(d.msg.Data(), v)
}

func (d *jsDelivery) Attempt() int {
	md, err := d.msg.Metadata()
	if err != nil {
		return 1
	}
	return int(md.NumDelivered)
}

func (d *jsDelivery) Ack() error { return d.msg.Ack() }

func (d *jsDelivery) Nack() error {
	if d.nakDelay > 0 {
		return d.msg.NakWithDelay(d.nakDelay)
	}
	return d.msg.Nak()
}
