package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"drishti-worker-go/internal/api/handlers"
	"drishti-worker-go/internal/config"
	"drishti-worker-go/internal/models"
	"drishti-worker-go/internal/services"
	"drishti-worker-go/internal/services/dispatch"
	"drishti-worker-go/internal/services/notification"
)

func newTestServer(t *testing.T) (*Server, *services.ServiceContainer) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Version:               "test",
		Environment:           "test",
		WorkerID:              "test-worker",
		Port:                  0,
		Fabric:                "memory",
		Codec:                 "json",
		AckWait:               time.Second,
		MaxDeliver:            3,
		NakDelay:              10 * time.Millisecond,
		BottleneckTopic:       "bottleneck-frames",
		AnomalyTopic:          "anomaly-frames",
		SummaryTopic:          "summary-events",
		DispatchTopic:         "dispatch-events",
		PushSubject:           "notifications.push",
		StoreBackend:          "memory",
		MediaBackend:          "filesystem",
		MediaDir:              t.TempDir(),
		BottleneckAnalyzerURL: "127.0.0.1:1",
		AnomalyAnalyzerURL:    "127.0.0.1:1",
		AnalyzerTimeout:       time.Second,
		TargetFPS:             1,
		MotionThreshold:       0.1,
		MaxUploadSize:         1 << 20,
		DensityThreshold:      4.5,
		HighDensityMultiplier: 1.2,
		ThreatKeywords:        []string{"smoke", "fire"},
		BufferCapacity:        10,
		MessageTimeout:        5 * time.Second,
		UnitsPerEvent:         1,
		DispatchMinSeverity:   "high",
		DefaultETA:            5,
		NotifyTimeout:         time.Second,
		SwaggerHost:           "localhost",
		SwaggerPort:           8000,
	}

	container, err := services.NewServiceContainer(context.Background(), cfg, config.DefaultRegistry())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { container.Shutdown(context.Background()) })

	s := NewServer(cfg, container)
	s.Setup()
	return s, container
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestHealthAndInfo(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s.Handler(), http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health: %d %s", w.Code, w.Body.String())
	}
	health := decode[handlers.HealthResponse](t, w)
	if health.Status != "healthy" || !health.FabricConnected || health.WorkerID != "test-worker" {
		t.Errorf("unexpected health %+v", health)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}

	w = doJSON(t, s.Handler(), http.MethodGet, "/", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("info: %d", w.Code)
	}
	info := decode[handlers.WorkerInfoResponse](t, w)
	if len(info.Capabilities) == 0 {
		t.Error("expected capabilities")
	}
}

func TestDispatchEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	event := models.CriticalEvent{EventID: "ev-1", Type: "fire", Severity: models.SeverityHigh, Location: "Gate 1"}

	w := doJSON(t, h, http.MethodPost, "/dispatch", event)
	if w.Code != http.StatusOK {
		t.Fatalf("dispatch: %d %s", w.Code, w.Body.String())
	}
	out := decode[dispatch.Outcome](t, w)
	if out.Status != dispatch.StatusDispatched || out.Instruction == nil || out.Instruction.Units[0].UnitID != "F1" {
		t.Fatalf("unexpected outcome %+v", out)
	}

	// same event again returns the stored instruction
	w = doJSON(t, h, http.MethodPost, "/dispatch", event)
	if w.Code != http.StatusOK {
		t.Fatalf("redispatch: %d", w.Code)
	}
	if out := decode[dispatch.Outcome](t, w); out.Status != dispatch.StatusExisting {
		t.Errorf("expected existing, got %s", out.Status)
	}

	// the only firefighter is busy
	w = doJSON(t, h, http.MethodPost, "/dispatch", models.CriticalEvent{EventID: "ev-2", Type: "fire", Severity: models.SeverityHigh})
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d %s", w.Code, w.Body.String())
	}
	if out := decode[dispatch.Outcome](t, w); out.Status != dispatch.StatusRejected || out.Rejection == nil {
		t.Errorf("unexpected outcome %+v", out)
	}

	w = doJSON(t, h, http.MethodGet, "/dispatch/ev-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get instruction: %d", w.Code)
	}
	if in := decode[models.DispatchInstruction](t, w); in.Action != "Deploy firefighter" {
		t.Errorf("unexpected instruction %+v", in)
	}

	w = doJSON(t, h, http.MethodGet, "/dispatch/missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}

	w = doJSON(t, h, http.MethodGet, "/logs", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("logs: %d", w.Code)
	}
	logs := decode[handlers.LogsResponse](t, w)
	if len(logs.Dispatches) != 1 || len(logs.Rejections) != 1 {
		t.Errorf("expected 1 dispatch and 1 rejection, got %d and %d", len(logs.Dispatches), len(logs.Rejections))
	}
}

func TestDispatchValidation(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s.Handler(), http.MethodPost, "/dispatch", map[string]string{"type": "fire"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestUnitEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	w := doJSON(t, h, http.MethodGet, "/units", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d", w.Code)
	}
	if units := decode[[]models.FieldUnit](t, w); len(units) != 2 {
		t.Fatalf("expected 2 seeded units, got %d", len(units))
	}

	w = doJSON(t, h, http.MethodPost, "/units", models.FieldUnit{UnitID: "S1", Type: "security", Location: "Zone Z3"})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", w.Code, w.Body.String())
	}
	if u := decode[models.FieldUnit](t, w); u.Status != models.UnitAvailable {
		t.Errorf("expected available, got %s", u.Status)
	}

	w = doJSON(t, h, http.MethodPost, "/units", map[string]string{"unitId": "X1"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing type, got %d", w.Code)
	}

	w = doJSON(t, h, http.MethodPost, "/dispatch", models.CriticalEvent{EventID: "ev-9", Type: "medical", Severity: models.SeverityHigh})
	if w.Code != http.StatusOK {
		t.Fatalf("dispatch: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, h, http.MethodPost, "/units/M1/release", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("release: %d %s", w.Code, w.Body.String())
	}
	if u := decode[models.FieldUnit](t, w); u.Status != models.UnitAvailable {
		t.Errorf("expected M1 available, got %s", u.Status)
	}

	w = doJSON(t, h, http.MethodPost, "/units/nope/release", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestSummariesEmpty(t *testing.T) {
	s, _ := newTestServer(t)

	w := doJSON(t, s.Handler(), http.MethodGet, "/summaries", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("summaries: %d", w.Code)
	}
	if got := decode[[]models.SummaryRecord](t, w); len(got) != 0 {
		t.Errorf("expected no summaries, got %d", len(got))
	}
}

func TestNotifyEndpoint(t *testing.T) {
	s, sc := newTestServer(t)
	h := s.Handler()

	w := doJSON(t, h, http.MethodPost, "/notify", map[string]string{"message": "no subject"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}

	w = doJSON(t, h, http.MethodPost, "/notify", map[string]any{
		"subject":  "Crowd alert",
		"message":  "High density at Main Stage",
		"channels": []string{"push"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("notify: %d %s", w.Code, w.Body.String())
	}
	if resp := decode[handlers.NotifyResponse](t, w); resp.Status != "success" || len(resp.Results) != 1 {
		t.Errorf("unexpected response %+v", resp)
	}

	// email recipients never become push tokens
	w = doJSON(t, h, http.MethodPost, "/notify", map[string]any{
		"subject":    "Crowd alert",
		"message":    "High density at Main Stage",
		"recipients": []string{"ops@example.com"},
		"channels":   []string{"push"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("notify with recipients: %d %s", w.Code, w.Body.String())
	}
	sub, err := sc.Fabric.Subscribe(context.Background(), "notifications.push", "push-gateway")
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Stop()
	for range 2 {
		select {
		case d := <-sub.Deliveries():
			var msg notification.PushMessage
			if err := d.Decode(&msg); err != nil {
				t.Fatal(err)
			}
			if msg.Topic != notification.DefaultPushTopic || len(msg.Tokens) != 0 {
				t.Fatalf("push should go to the default topic: %+v", msg)
			}
			d.Ack()
		case <-time.After(2 * time.Second):
			t.Fatal("push message not published")
		}
	}

	// email is not configured in tests
	w = doJSON(t, h, http.MethodPost, "/notify", map[string]any{
		"subject":  "Crowd alert",
		"message":  "High density at Main Stage",
		"channels": []string{"email"},
	})
	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d %s", w.Code, w.Body.String())
	}
}

func TestIngestRejectsMissingFile(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/ingest", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}
