package logging

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })
	return &buf
}

func TestRequestFieldsAreLogged(t *testing.T) {
	buf := captureLog(t)
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	SetRequestID(c, "req-1")
	SetEvent(c, "ev-1")
	MarkStart(c)
	Info(c).Msg("dispatched")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if line["request_id"] != "req-1" || line["event_id"] != "ev-1" {
		t.Errorf("missing request fields: %v", line)
	}
	if _, ok := line["duration"]; !ok {
		t.Errorf("missing duration: %v", line)
	}
	if _, ok := line["camera_id"]; ok {
		t.Errorf("unset camera_id logged: %v", line)
	}
}

func TestNilContextLogsPlainEvent(t *testing.T) {
	buf := captureLog(t)
	Warn(nil).Msg("no request")
	if !bytes.Contains(buf.Bytes(), []byte(`"message":"no request"`)) {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
