package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"drishti-worker-go/internal/services/messaging"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func startPool(t *testing.T, maxDeliver int, h Handler) (*messaging.MemoryFabric, *Pool) {
	t.Helper()
	ctx := context.Background()
	fabric := messaging.NewMemoryFabric(messaging.Options{MaxDeliver: maxDeliver})
	sub, err := fabric.Subscribe(ctx, "jobs", "test")
	if err != nil {
		t.Fatal(err)
	}
	pool := New(Config{Name: "test", Workers: 2, Timeout: time.Second}, sub, h, zerolog.Nop())
	pool.Start(ctx)
	t.Cleanup(func() {
		pool.Stop()
		fabric.Shutdown(ctx)
	})
	return fabric, pool
}

func TestPoolAcksOnSuccess(t *testing.T) {
	var calls atomic.Int32
	fabric, pool := startPool(t, 3, func(ctx context.Context, d messaging.Delivery) error {
		calls.Add(1)
		return nil
	})

	if err := fabric.Publish(context.Background(), "jobs", map[string]string{"a": "b"}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return pool.Stats().Acked == 1 })

	time.Sleep(20 * time.Millisecond)
	if calls.Load() != 1 {
		t.Fatalf("expected one call, got %d", calls.Load())
	}
}

func TestPoolRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	fabric, pool := startPool(t, 5, func(ctx context.Context, d messaging.Delivery) error {
		if calls.Add(1) < 3 {
			return errors.New("store unavailable")
		}
		return nil
	})

	if err := fabric.Publish(context.Background(), "jobs", "x"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return pool.Stats().Acked == 1 })

	if s := pool.Stats(); s.Retried != 2 {
		t.Fatalf("expected 2 retries, got %+v", s)
	}
}

func TestPoolAcksPermanentErrors(t *testing.T) {
	var calls atomic.Int32
	fabric, pool := startPool(t, 5, func(ctx context.Context, d messaging.Delivery) error {
		calls.Add(1)
		return Permanent(errors.New("malformed payload"))
	})

	if err := fabric.Publish(context.Background(), "jobs", "x"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return pool.Stats().Rejected == 1 })

	time.Sleep(20 * time.Millisecond)
	if calls.Load() != 1 {
		t.Fatalf("permanent errors must not be redelivered, got %d calls", calls.Load())
	}
}

func TestPoolRecoversPanics(t *testing.T) {
	var calls atomic.Int32
	fabric, pool := startPool(t, 5, func(ctx context.Context, d messaging.Delivery) error {
		if calls.Add(1) == 1 {
			panic("boom")
		}
		return nil
	})

	if err := fabric.Publish(context.Background(), "jobs", "x"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return pool.Stats().Acked == 1 })

	if s := pool.Stats(); s.Panics != 1 || s.Retried != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestPermanentWrapping(t *testing.T) {
	base := errors.New("bad")
	err := Permanent(base)
	if !IsPermanent(err) || !errors.Is(err, base) {
		t.Fatal("Permanent should wrap and be detectable")
	}
	if IsPermanent(base) {
		t.Fatal("plain errors are not permanent")
	}
	if Permanent(nil) != nil {
		t.Fatal("Permanent(nil) should be nil")
	}
}
