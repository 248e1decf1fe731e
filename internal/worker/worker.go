package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"drishti-worker-go/internal/services/messaging"
)

// Handler processes one delivery. Returning nil acks the message, a
// Permanent error acks and logs it, any other error asks for redelivery.
type Handler func(ctx context.Context, d messaging.Delivery) error

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Config for a Pool
type Config struct {
	Name    string
	Workers int
	Timeout time.Duration
}

// Stats counts handled deliveries
type Stats struct {
	Name      string `json:"name"`
	Workers   int    `json:"workers"`
	Processed int64  `json:"processed"`
	Acked     int64  `json:"acked"`
	Rejected  int64  `json:"rejected"`
	Retried   int64  `json:"retried"`
	Panics    int64  `json:"panics"`
}

// Pool runs a fixed number of goroutines over one subscription
type Pool struct {
	cfg     Config
	sub     messaging.Subscription
	handler Handler
	logger  zerolog.Logger
	tracer  trace.Tracer

	wg     sync.WaitGroup
	cancel context.CancelFunc

	processed atomic.Int64
	acked     atomic.Int64
	rejected  atomic.Int64
	retried   atomic.Int64
	panics    atomic.Int64
}

// New creates a pool; call Start to begin consuming
func New(cfg Config, sub messaging.Subscription, handler Handler, logger zerolog.Logger) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Pool{
		cfg:     cfg,
		sub:     sub,
		handler: handler,
		logger:  logger.With().Str("pool", cfg.Name).Logger(),
		tracer:  otel.Tracer("drishti-worker-go/internal/worker"),
	}
}

// Start launches the workers in the background
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.logger.Info().Int("workers", p.cfg.Workers).Msg("Starting worker pool")
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.loop(ctx, i)
	}
}

// Stop stops the subscription and waits for in-flight messages to finish
func (p *Pool) Stop() {
	if err := p.sub.Stop(); err != nil {
		p.logger.Warn().Err(err).Msg("Failed to stop subscription")
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	p.logger.Info().Msg("Worker pool stopped")
}

func (p *Pool) Stats() Stats {
	return Stats{
		Name:      p.cfg.Name,
		Workers:   p.cfg.Workers,
		Processed: p.processed.Load(),
		Acked:     p.acked.Load(),
		Rejected:  p.rejected.Load(),
		Retried:   p.retried.Load(),
		Panics:    p.panics.Load(),
	}
}

func (p *Pool) loop(ctx context.Context, id int) {
	defer p.wg.Done()
	deliveries := p.sub.Deliveries()

	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				p.logger.Debug().Int("worker", id).Msg("Subscription closed")
				return
			}
			p.process(ctx, d)
		}
	}
}

func (p *Pool) process(ctx context.Context, d messaging.Delivery) {
	p.processed.Add(1)

	msgCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	msgCtx, span := p.tracer.Start(msgCtx, p.cfg.Name+".handle", trace.WithAttributes(
		attribute.String("messaging.destination.name", d.Topic()),
		attribute.Int("messaging.delivery.attempt", d.Attempt()),
	))
	defer span.End()

	err := p.safeHandle(msgCtx, d)
	logger := p.logger.With().Str("topic", d.Topic()).Int("attempt", d.Attempt()).Logger()

	switch {
	case err == nil:
		p.acked.Add(1)
		if ackErr := d.Ack(); ackErr != nil {
			logger.Warn().Err(ackErr).Msg("Failed to ack message")
		}
	case IsPermanent(err):
		p.rejected.Add(1)
		span.RecordError(err)
		logger.Warn().Err(err).Msg("Message rejected, not retrying")
		if ackErr := d.Ack(); ackErr != nil {
			logger.Warn().Err(ackErr).Msg("Failed to ack message")
		}
	default:
		p.retried.Add(1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error().Err(err).Msg("Message handling failed, requesting redelivery")
		if nackErr := d.Nack(); nackErr != nil {
			logger.Warn().Err(nackErr).Msg("Failed to nack message")
		}
	}
}

func (p *Pool) safeHandle(ctx context.Context, d messaging.Delivery) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.panics.Add(1)
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return p.handler(ctx, d)
}
