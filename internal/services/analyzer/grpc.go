package analyzer

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"drishti-worker-go/internal/models"
)

const (
	serviceName   = "drishti.analyzer.v1.Analyzer"
	analyzeMethod = "/" + serviceName + "/Analyze"
)

// GRPCClient calls a remote inference service. Requests and responses are
// google.protobuf.Struct messages so the service can evolve its fields freely.
type GRPCClient struct {
	url  string
	kind string

	mu        sync.Mutex
	conn      *grpc.ClientConn
	isHealthy bool
}

// NewGRPCClient creates a client for url. kind ("bottleneck" or "anomaly")
// tells the service which model to run.
func NewGRPCClient(url, kind string) *GRPCClient {
	log.Info().Str("url", url).Str("kind", kind).Msg("Initializing analyzer client")

	c := &GRPCClient{url: url, kind: kind}

	// Try to connect, but don't fail if it's not available
	if _, err := c.ensureConnection(context.Background()); err != nil {
		log.Warn().Err(err).Str("kind", kind).Msg("Analyzer not available, will retry later")
	}
	return c
}

// connect health-checks the client connection, dialing it first if needed.
// The connection is never replaced while the client is open: grpc redials on
// its own and callers may still hold it for in-flight calls.
func (c *GRPCClient) connect(ctx context.Context) (*grpc.ClientConn, error) {
	if c.conn == nil {
		conn, err := grpc.NewClient(c.url, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to analyzer: %w", err)
		}
		c.conn = conn
	}

	// Test connection with health check
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(c.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: serviceName})
	if err != nil {
		return nil, fmt.Errorf("analyzer health check failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return nil, fmt.Errorf("analyzer not serving: %s", resp.GetStatus())
	}

	c.isHealthy = true
	log.Info().Str("kind", c.kind).Msg("Successfully connected to analyzer")
	return c.conn, nil
}

// ensureConnection returns the connection it validated; callers use that
// pointer for the whole call.
func (c *GRPCClient) ensureConnection(ctx context.Context) (*grpc.ClientConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isHealthy && c.conn != nil {
		return c.conn, nil
	}
	return c.connect(ctx)
}

func (c *GRPCClient) markUnhealthy() {
	c.mu.Lock()
	c.isHealthy = false
	c.mu.Unlock()
}

func (c *GRPCClient) Analyze(ctx context.Context, frame models.Frame) (Result, error) {
	conn, err := c.ensureConnection(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("analyzer unavailable: %w", err)
	}

	req, err := structpb.NewStruct(map[string]any{
		"kind":        c.kind,
		"camera_id":   frame.CameraID,
		"zone_id":     frame.ZoneID,
		"sequence":    float64(frame.Sequence),
		"captured_at": frame.CapturedAt.UTC().Format(time.RFC3339Nano),
		"image":       base64.StdEncoding.EncodeToString(frame.Data),
	})
	if err != nil {
		return Result{}, fmt.Errorf("build analyzer request: %w", err)
	}

	resp := &structpb.Struct{}
	if err := conn.Invoke(ctx, analyzeMethod, req, resp); err != nil {
		c.markUnhealthy()
		return Result{}, err
	}

	log.Debug().Str("kind", c.kind).Interface("response", resp.AsMap()).Msg("Analyzer response")
	return parseResult(resp), nil
}

func parseResult(resp *structpb.Struct) Result {
	fields := resp.GetFields()
	res := Result{
		Density:    fields["density"].GetNumberValue(),
		Confidence: fields["confidence"].GetNumberValue(),
	}
	for _, v := range fields["labels"].GetListValue().GetValues() {
		if s := v.GetStringValue(); s != "" {
			res.Labels = append(res.Labels, s)
		}
	}
	return res
}

func (c *GRPCClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	c.isHealthy = false
	return err
}
