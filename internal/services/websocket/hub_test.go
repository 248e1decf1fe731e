package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		NewClient(hub, conn).Serve()
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubBroadcastsToClients(t *testing.T) {
	hub, srv := startHub(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	hub.Broadcast("summary", map[string]string{"id": "s-1"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var msg struct {
		Type    string            `json:"type"`
		Payload map[string]string `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != "summary" || msg.Payload["id"] != "s-1" {
		t.Fatalf("unexpected message %s", data)
	}
}

func TestHubForgetsClosedClients(t *testing.T) {
	hub, srv := startHub(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	conn.Close()
	waitFor(t, func() bool { return hub.ClientCount() == 0 })
}

func TestBroadcastDoesNotBlockWithoutRunner(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Broadcast("dispatch", i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked")
	}
}

func TestStoppedHubDoesNotBlockClients(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	client := &Client{hub: hub, send: make(chan []byte, sendBuffer)}
	done := make(chan struct{})
	go func() {
		hub.Register(client)
		hub.Unregister(client)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Register or Unregister blocked on a stopped hub")
	}
	if _, ok := <-client.send; ok {
		t.Fatal("send channel should be closed after registering with a stopped hub")
	}
}
