package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"drishti-worker-go/internal/models"
)

func TestWithTimeout(t *testing.T) {
	slow := Func(func(ctx context.Context, _ models.Frame) (Result, error) {
		select {
		case <-time.After(time.Second):
			return Result{Density: 1}, nil
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	})

	_, err := WithTimeout(slow, 20*time.Millisecond).Analyze(context.Background(), models.Frame{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestWithTimeoutPassesThrough(t *testing.T) {
	fast := Func(func(ctx context.Context, _ models.Frame) (Result, error) {
		return Result{Labels: []string{"fire"}}, nil
	})

	res, err := WithTimeout(fast, time.Second).Analyze(context.Background(), models.Frame{})
	if err != nil || len(res.Labels) != 1 {
		t.Fatalf("got %+v, %v", res, err)
	}
}

func TestParseResult(t *testing.T) {
	resp, err := structpb.NewStruct(map[string]any{
		"density":    5.1,
		"confidence": 0.93,
		"labels":     []any{"Fire", "", "person"},
	})
	if err != nil {
		t.Fatal(err)
	}

	res := parseResult(resp)
	if res.Density != 5.1 || res.Confidence != 0.93 {
		t.Errorf("unexpected numbers %+v", res)
	}
	if len(res.Labels) != 2 || res.Labels[0] != "Fire" {
		t.Errorf("unexpected labels %v", res.Labels)
	}
}

func TestParseResultEmpty(t *testing.T) {
	res := parseResult(&structpb.Struct{})
	if res.Density != 0 || res.Labels != nil {
		t.Errorf("expected zero result, got %+v", res)
	}
}
