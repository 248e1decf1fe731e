// Package analyzer defines the frame analysis boundary used by the detection
// agents and its remote gRPC implementation.
package analyzer

import (
	"context"
	"fmt"
	"time"

	"drishti-worker-go/internal/models"
)

// Result is what an analyzer reports about one frame. Bottleneck analyzers
// fill Density; anomaly analyzers fill Labels.
type Result struct {
	Density    float64  `json:"density"`
	Labels     []string `json:"labels"`
	Confidence float64  `json:"confidence"`
}

// Analyzer inspects a frame. Implementations must be safe for concurrent use.
type Analyzer interface {
	Analyze(ctx context.Context, frame models.Frame) (Result, error)
}

// Func adapts a plain function to Analyzer
type Func func(ctx context.Context, frame models.Frame) (Result, error)

func (f Func) Analyze(ctx context.Context, frame models.Frame) (Result, error) {
	return f(ctx, frame)
}

// WithTimeout bounds every call to a
func WithTimeout(a Analyzer, d time.Duration) Analyzer {
	if d <= 0 {
		return a
	}
	return Func(func(ctx context.Context, frame models.Frame) (Result, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()

		type outcome struct {
			res Result
			err error
		}
		done := make(chan outcome, 1)
		go func() {
			res, err := a.Analyze(ctx, frame)
			done <- outcome{res, err}
		}()

		select {
		case o := <-done:
			return o.res, o.err
		case <-ctx.Done():
			return Result{}, fmt.Errorf("analyzer timed out after %s: %w", d, ctx.Err())
		}
	})
}
