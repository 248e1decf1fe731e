package messaging

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// MemoryFabric is an in-process Fabric with the same delivery contract as the
// JetStream fabric: durable groups, explicit ack, ack-wait redelivery and a
// delivery limit. Messages published before any group exists are held and
// handed to the first group that subscribes.
type MemoryFabric struct {
	opts Options

	mu     sync.Mutex
	topics map[string]*memTopic
	subs   map[*memSubscription]struct{}
	closed bool
	wg     sync.WaitGroup
}

type memTopic struct {
	backlog []*memMessage
	groups  map[string]*memGroup
}

type memMessage struct {
	topic       string
	data        []byte
	contentType string
	attempts    int
}

type memGroup struct {
	fabric *MemoryFabric
	name   string

	mu    sync.Mutex
	queue []*memMessage
	wake  chan struct{}
}

func NewMemoryFabric(opts Options) *MemoryFabric {
	return &MemoryFabric{
		opts:   opts.withDefaults(),
		topics: make(map[string]*memTopic),
		subs:   make(map[*memSubscription]struct{}),
	}
}

func (f *MemoryFabric) Publish(_ context.Context, topic string, v any) error {
	if topic == "" {
		return ErrEmptyTopic
	}
	data, err := f.opts.Codec.Marshal(v)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	t := f.topicLocked(topic)
	if len(t.groups) == 0 {
		t.backlog = append(t.backlog, &memMessage{topic: topic, data: data, contentType: f.opts.Codec.ContentType()})
		return nil
	}
	for _, g := range t.groups {
		g.enqueue(&memMessage{topic: topic, data: data, contentType: f.opts.Codec.ContentType()})
	}
	return nil
}

func (f *MemoryFabric) Subscribe(_ context.Context, topic, durable string) (Subscription, error) {
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	if durable == "" {
		return nil, ErrEmptyDurable
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}

	t := f.topicLocked(topic)
	g, ok := t.groups[durable]
	if !ok {
		g = &memGroup{fabric: f, name: durable, wake: make(chan struct{}, 1)}
		if len(t.groups) == 0 {
			for _, m := range t.backlog {
				g.enqueue(m)
			}
			t.backlog = nil
		}
		t.groups[durable] = g
	}

	sub := &memSubscription{
		fabric: f,
		group:  g,
		out:    make(chan Delivery),
		done:   make(chan struct{}),
	}
	f.subs[sub] = struct{}{}
	f.wg.Add(1)
	go sub.pump()
	return sub, nil
}

func (f *MemoryFabric) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed
}

func (f *MemoryFabric) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	subs := make([]*memSubscription, 0, len(f.subs))
	for s := range f.subs {
		subs = append(subs, s)
	}
	f.mu.Unlock()

	for _, s := range subs {
		s.Stop()
	}

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *MemoryFabric) topicLocked(name string) *memTopic {
	t, ok := f.topics[name]
	if !ok {
		t = &memTopic{groups: make(map[string]*memGroup)}
		f.topics[name] = t
	}
	return t
}

func (g *memGroup) enqueue(m *memMessage) {
	g.mu.Lock()
	g.queue = append(g.queue, m)
	g.mu.Unlock()
	g.signal()
}

func (g *memGroup) signal() {
	select {
	case g.wake <- struct{}{}:
	default:
	}
}

// next blocks until a message is queued or done is closed
func (g *memGroup) next(done <-chan struct{}) (*memMessage, bool) {
	for {
		g.mu.Lock()
		if len(g.queue) > 0 {
			m := g.queue[0]
			g.queue = g.queue[1:]
			more := len(g.queue) > 0
			g.mu.Unlock()
			if more {
				g.signal()
			}
			return m, true
		}
		g.mu.Unlock()

		select {
		case <-g.wake:
		case <-done:
			return nil, false
		}
	}
}

// redeliver puts m back on the queue unless its delivery limit is spent
func (g *memGroup) redeliver(m *memMessage, delay time.Duration) {
	if m.attempts >= g.fabric.opts.MaxDeliver {
		log.Warn().
			Str("topic", m.topic).
			Str("durable", g.name).
			Int("attempts", m.attempts).
			Msg("Message exceeded max deliveries, dropping")
		return
	}
	if delay > 0 {
		time.AfterFunc(delay, func() { g.enqueue(m) })
		return
	}
	g.enqueue(m)
}

type memSubscription struct {
	fabric *MemoryFabric
	group  *memGroup
	out    chan Delivery
	done   chan struct{}
	once   sync.Once
}

func (s *memSubscription) Deliveries() <-chan Delivery { return s.out }

func (s *memSubscription) Stop() error {
	s.once.Do(func() {
		close(s.done)
		s.fabric.mu.Lock()
		delete(s.fabric.subs, s)
		s.fabric.mu.Unlock()
	})
	return nil
}

func (s *memSubscription) pump() {
	defer s.fabric.wg.Done()
	defer close(s.out)

	for {
		m, ok := s.group.next(s.done)
		if !ok {
			return
		}
		m.attempts++
		d := &memDelivery{group: s.group, msg: m, attempt: m.attempts}

		select {
		case s.out <- d:
			d.armAckTimer(s.fabric.opts.AckWait)
		case <-s.done:
			m.attempts--
			s.group.enqueue(m)
			return
		}
	}
}

type memDelivery struct {
	group   *memGroup
	msg     *memMessage
	attempt int
	settled atomic.Bool

	mu    sync.Mutex
	timer *time.Timer
}

func (d *memDelivery) Topic() string { return d.msg.topic }
func (d *memDelivery) Data() []byte  { return d.msg.data }
func (d *memDelivery) Attempt() int  { return d.attempt }

func (d *memDelivery) Decode(v any) error {
	return codecForContentType(d.msg.contentType).Unmarshal(d.msg.data, v)
}

func (d *memDelivery) Ack() error {
	if d.settled.CompareAndSwap(false, true) {
		d.stopTimer()
	}
	return nil
}

func (d *memDelivery) Nack() error {
	if d.settled.CompareAndSwap(false, true) {
		d.stopTimer()
		d.group.redeliver(d.msg, d.group.fabric.opts.NakDelay)
	}
	return nil
}

func (d *memDelivery) armAckTimer(wait time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.settled.Load() {
		return
	}
	d.timer = time.AfterFunc(wait, func() {
		if d.settled.CompareAndSwap(false, true) {
			d.group.redeliver(d.msg, 0)
		}
	})
}

func (d *memDelivery) stopTimer() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
