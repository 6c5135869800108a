package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func startTestServer(t *testing.T) *Server {
	t.Helper()
	s := NewServer(&Config{Port: 0, Logger: log.New(io.Discard, "", 0)})
	if err := s.Start(); err != nil {
		t.Fatalf("failed to start server: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Stop(); err != nil {
			t.Errorf("failed to stop server: %v", err)
		}
	})
	return s
}

// dialAddr rewrites the wildcard listen address into a dialable one.
func dialAddr(t *testing.T, s *Server) string {
	t.Helper()
	_, port, err := net.SplitHostPort(s.Addr())
	if err != nil {
		t.Fatalf("bad server address %q: %v", s.Addr(), err)
	}
	return net.JoinHostPort("127.0.0.1", port)
}

func dialTestClient(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws://"+dialAddr(t, s)+"/ws", nil)
	if err != nil {
		t.Fatalf("failed to dial dashboard: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })

	// The server registers the client asynchronously after the upgrade.
	deadline := time.Now().Add(5 * time.Second)
	for s.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("failed to read broadcast: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to decode broadcast: %v", err)
	}
	return msg
}

func TestPublishListUpdate(t *testing.T) {
	s := startTestServer(t)
	conn := dialTestClient(t, s)

	view := []map[string]any{{"id": "a1", "text": "Milk", "checked": false}}
	s.PublishListUpdate("list1", view)

	msg := readMessage(t, conn)
	if msg.Type != MessageTypeListUpdate {
		t.Errorf("type = %q", msg.Type)
	}
	if msg.ListID != "list1" {
		t.Errorf("listId = %q", msg.ListID)
	}
	var got []map[string]any
	if err := json.Unmarshal(msg.Data, &got); err != nil {
		t.Fatalf("failed to decode view: %v", err)
	}
	if len(got) != 1 || got[0]["text"] != "Milk" {
		t.Errorf("view = %+v", got)
	}
}

func TestPublishSyncStatus(t *testing.T) {
	s := startTestServer(t)
	conn := dialTestClient(t, s)

	s.PublishSyncStatus("list1", "offline")

	msg := readMessage(t, conn)
	if msg.Type != MessageTypeSyncStatus {
		t.Errorf("type = %q", msg.Type)
	}
	var got map[string]string
	if err := json.Unmarshal(msg.Data, &got); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	if got["status"] != "offline" {
		t.Errorf("status = %q", got["status"])
	}
}

func TestHealthEndpoint(t *testing.T) {
	s := startTestServer(t)

	resp, err := http.Get("http://" + dialAddr(t, s) + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode health body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("health = %+v", body)
	}
}

func TestClientDisconnectTracked(t *testing.T) {
	s := startTestServer(t)
	conn := dialTestClient(t, s)

	_ = conn.Close(websocket.StatusNormalClosure, "")

	deadline := time.Now().Add(5 * time.Second)
	for s.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, never drained", s.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}
