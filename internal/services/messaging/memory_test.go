package messaging

import (
	"context"
	"testing"
	"time"
)

type payload struct {
	Name  string `json:"name" msgpack:"name"`
	Count int    `json:"count" msgpack:"count"`
}

func newTestFabric(t *testing.T, opts Options) *MemoryFabric {
	t.Helper()
	f := NewMemoryFabric(opts)
	t.Cleanup(func() { f.Shutdown(context.Background()) })
	return f
}

func receive(t *testing.T, sub Subscription) Delivery {
	t.Helper()
	select {
	case d, ok := <-sub.Deliveries():
		if !ok {
			t.Fatal("deliveries channel closed")
		}
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
	return nil
}

func expectNothing(t *testing.T, sub Subscription, wait time.Duration) {
	t.Helper()
	select {
	case d := <-sub.Deliveries():
		t.Fatalf("unexpected delivery on %s", d.Topic())
	case <-time.After(wait):
	}
}

func TestPublishBeforeSubscribeIsRetained(t *testing.T) {
	ctx := context.Background()
	f := newTestFabric(t, Options{})

	if err := f.Publish(ctx, "summary-events", payload{Name: "early", Count: 1}); err != nil {
		t.Fatal(err)
	}

	sub, err := f.Subscribe(ctx, "summary-events", "summary-agent")
	if err != nil {
		t.Fatal(err)
	}

	var got payload
	d := receive(t, sub)
	if err := d.Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Name != "early" || d.Attempt() != 1 {
		t.Fatalf("got %+v attempt %d", got, d.Attempt())
	}
	d.Ack()
}

func TestNackRedelivers(t *testing.T) {
	ctx := context.Background()
	f := newTestFabric(t, Options{MaxDeliver: 3})

	sub, err := f.Subscribe(ctx, "dispatch-events", "dispatch-agent")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Publish(ctx, "dispatch-events", payload{Name: "evt"}); err != nil {
		t.Fatal(err)
	}

	first := receive(t, sub)
	first.Nack()

	second := receive(t, sub)
	if second.Attempt() != 2 {
		t.Fatalf("expected attempt 2, got %d", second.Attempt())
	}
	second.Ack()

	expectNothing(t, sub, 50*time.Millisecond)
}

func TestMaxDeliverDropsMessage(t *testing.T) {
	ctx := context.Background()
	f := newTestFabric(t, Options{MaxDeliver: 2})

	sub, err := f.Subscribe(ctx, "anomaly-frames", "anomaly-agent")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Publish(ctx, "anomaly-frames", payload{Name: "poison"}); err != nil {
		t.Fatal(err)
	}

	receive(t, sub).Nack()
	receive(t, sub).Nack()
	expectNothing(t, sub, 50*time.Millisecond)
}

func TestAckWaitExpiryRedelivers(t *testing.T) {
	ctx := context.Background()
	f := newTestFabric(t, Options{AckWait: 20 * time.Millisecond})

	sub, err := f.Subscribe(ctx, "bottleneck-frames", "bottleneck-agent")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Publish(ctx, "bottleneck-frames", payload{Name: "slow"}); err != nil {
		t.Fatal(err)
	}

	receive(t, sub) // never settled
	d := receive(t, sub)
	if d.Attempt() != 2 {
		t.Fatalf("expected redelivery after ack wait, attempt=%d", d.Attempt())
	}
	d.Ack()
}

func TestDurableGroupSharesMessages(t *testing.T) {
	ctx := context.Background()
	f := newTestFabric(t, Options{})

	a, err := f.Subscribe(ctx, "summary-events", "summary-agent")
	if err != nil {
		t.Fatal(err)
	}
	b, err := f.Subscribe(ctx, "summary-events", "summary-agent")
	if err != nil {
		t.Fatal(err)
	}
	other, err := f.Subscribe(ctx, "summary-events", "audit")
	if err != nil {
		t.Fatal(err)
	}

	if err := f.Publish(ctx, "summary-events", payload{Name: "once"}); err != nil {
		t.Fatal(err)
	}

	// exactly one member of the group gets it
	var got Delivery
	select {
	case got = <-a.Deliveries():
	case got = <-b.Deliveries():
	case <-time.After(2 * time.Second):
		t.Fatal("group received nothing")
	}
	got.Ack()
	expectNothing(t, a, 30*time.Millisecond)
	expectNothing(t, b, 30*time.Millisecond)

	// a different durable group gets its own copy
	receive(t, other).Ack()
}

func TestMsgPackCodecRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newTestFabric(t, Options{Codec: MsgPack})

	sub, err := f.Subscribe(ctx, "anomaly-frames", "anomaly-agent")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.Publish(ctx, "anomaly-frames", payload{Name: "packed", Count: 7}); err != nil {
		t.Fatal(err)
	}

	var got payload
	d := receive(t, sub)
	if err := d.Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got != (payload{Name: "packed", Count: 7}) {
		t.Fatalf("got %+v", got)
	}
	d.Ack()
}

func TestStopClosesDeliveries(t *testing.T) {
	ctx := context.Background()
	f := newTestFabric(t, Options{})

	sub, err := f.Subscribe(ctx, "summary-events", "summary-agent")
	if err != nil {
		t.Fatal(err)
	}
	sub.Stop()

	select {
	case _, ok := <-sub.Deliveries():
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after Stop")
	}
}

func TestPublishAfterShutdown(t *testing.T) {
	f := NewMemoryFabric(Options{})
	if err := f.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := f.Publish(context.Background(), "t", payload{}); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if f.IsConnected() {
		t.Fatal("fabric should report disconnected after shutdown")
	}
}

func TestCodecByName(t *testing.T) {
	tests := []struct {
		name    string
		want    Codec
		wantErr bool
	}{
		{"", JSON, false},
		{"json", JSON, false},
		{"msgpack", MsgPack, false},
		{"xml", nil, true},
	}
	for _, tt := range tests {
		got, err := CodecByName(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("CodecByName(%q) err = %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("CodecByName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
