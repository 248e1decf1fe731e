package analyzer

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"drishti-worker-go/internal/models"
)

type stubAnalyzer struct{}

func (stubAnalyzer) analyze(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"density": 2.5,
		"labels":  []any{in.GetFields()["kind"].GetStringValue()},
	})
}

var stubAnalyzerDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "Analyze",
		Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
			in := &structpb.Struct{}
			if err := dec(in); err != nil {
				return nil, err
			}
			return srv.(stubAnalyzer).analyze(ctx, in)
		},
	}},
}

// startAnalyzer serves the Analyze method and the health service on a local port
func startAnalyzer(t *testing.T) (string, *health.Server) {
	t.Helper()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	srv := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	srv.RegisterService(&stubAnalyzerDesc, stubAnalyzer{})

	go srv.Serve(lis)
	t.Cleanup(srv.Stop)
	return lis.Addr().String(), hs
}

func TestGRPCClientAnalyze(t *testing.T) {
	addr, _ := startAnalyzer(t)
	c := NewGRPCClient(addr, "bottleneck")
	defer c.Close()

	res, err := c.Analyze(context.Background(), models.Frame{CameraID: "cam-1", CapturedAt: time.Now()})
	if err != nil {
		t.Fatal(err)
	}
	if res.Density != 2.5 || len(res.Labels) != 1 || res.Labels[0] != "bottleneck" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestFailedRecheckKeepsConnectionForHolders(t *testing.T) {
	addr, hs := startAnalyzer(t)
	c := NewGRPCClient(addr, "anomaly")
	defer c.Close()

	ctx := context.Background()
	held, err := c.ensureConnection(ctx)
	if err != nil {
		t.Fatal(err)
	}

	c.markUnhealthy()
	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
	if _, err := c.ensureConnection(ctx); err == nil {
		t.Fatal("expected the health recheck to fail")
	}

	req, _ := structpb.NewStruct(map[string]any{"kind": "anomaly"})
	if err := held.Invoke(ctx, analyzeMethod, req, &structpb.Struct{}); err != nil {
		t.Fatalf("held connection was torn down by the recheck: %v", err)
	}

	hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	if _, err := c.Analyze(ctx, models.Frame{}); err != nil {
		t.Fatalf("expected recovery once serving again, got %v", err)
	}
}

func TestConcurrentAnalyzeDuringRechecks(t *testing.T) {
	addr, hs := startAnalyzer(t)
	c := NewGRPCClient(addr, "bottleneck")
	defer c.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%4 == 0 {
				c.markUnhealthy()
				if i%8 == 0 {
					hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
				} else {
					hs.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
				}
			}
			// errors are fine here, a nil connection panic is not
			c.Analyze(ctx, models.Frame{})
		}()
	}
	wg.Wait()
}
