// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"loopfx/internal/source"

	"github.com/gorilla/websocket"
)

type recordingTransport struct {
	mu   sync.Mutex
	msgs []any
}

func (r *recordingTransport) Send(data any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, data)
	return nil
}

func (r *recordingTransport) Close() error { return nil }

func TestFeedMessages(t *testing.T) {
	rt := &recordingTransport{}
	f := NewFeed(rt)

	f.OnRegionChanged(0.25, 0.5, "#aabbcc", "#112233")
	f.OnPlayheadUpdate(0.3)
	f.OnSafetyTripped(1.4)
	f.OnPlaybackEnded()
	f.OnAssetLoaded("a.wav", 2.5, []source.Span{{Min: -1, Max: 1}})

	want := []string{
		`{"type":"region","start":0.25,"end":0.5,"regionColor":"#aabbcc","playheadColor":"#112233"}`,
		`{"type":"playhead","position":0.3}`,
		`{"type":"safety","peak":1.4}`,
		`{"type":"ended"}`,
		`{"type":"loaded","path":"a.wav","length":2.5,"overview":[{"min":-1,"max":1}]}`,
	}
	if len(rt.msgs) != len(want) {
		t.Fatalf("got %d messages, want %d", len(rt.msgs), len(want))
	}
	for i, msg := range rt.msgs {
		got, err := json.Marshal(msg)
		if err != nil {
			t.Fatalf("marshal %T: %v", msg, err)
		}
		if string(got) != want[i] {
			t.Errorf("message %d = %s, want %s", i, got, want[i])
		}
	}
}

func TestLoggingTransport(t *testing.T) {
	lt := NewLoggingTransport()
	if err := lt.Send(PlayheadMessage{Type: TypePlayhead}); err != nil {
		t.Errorf("Send: %v", err)
	}
	if err := lt.Send(func() {}); err != nil {
		t.Errorf("Send of an unmarshalable value: %v", err)
	}
	if err := lt.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readType(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg map[string]any
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

// waitClients polls until the transport has registered n clients.
func waitClients(t *testing.T, wst *WebSocketTransport, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		wst.clientsMu.Lock()
		got := len(wst.clients)
		wst.clientsMu.Unlock()
		if got == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d clients", n)
}

func TestWebSocketBroadcast(t *testing.T) {
	wst := NewWebSocketTransport("")
	defer wst.Close()
	srv := httptest.NewServer(wst.Handler())
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	waitClients(t, wst, 2)

	NewFeed(wst).OnPlayheadUpdate(0.75)
	for _, conn := range []*websocket.Conn{a, b} {
		msg := readType(t, conn)
		if msg["type"] != TypePlayhead || msg["position"] != 0.75 {
			t.Errorf("message = %v", msg)
		}
	}
}

func TestWebSocketReplaysRetainedState(t *testing.T) {
	wst := NewWebSocketTransport("")
	defer wst.Close()
	srv := httptest.NewServer(wst.Handler())
	defer srv.Close()

	first := dial(t, srv)
	waitClients(t, wst, 1)

	f := NewFeed(wst)
	f.OnAssetLoaded("loop.wav", 4, nil)
	f.OnRegionChanged(0.1, 0.2, "#ffffff", "#000000")
	f.OnPlayheadUpdate(0.15) // not retained
	for range 3 {
		readType(t, first)
	}

	late := dial(t, srv)
	if msg := readType(t, late); msg["type"] != TypeLoaded || msg["path"] != "loop.wav" {
		t.Errorf("first replayed message = %v", msg)
	}
	if msg := readType(t, late); msg["type"] != TypeRegion || msg["start"] != 0.1 {
		t.Errorf("second replayed message = %v", msg)
	}
}

func TestWebSocketSendAfterClose(t *testing.T) {
	wst := NewWebSocketTransport("")
	if err := wst.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := wst.Send(EndedMessage{Type: TypeEnded}); err != ErrClosed {
		t.Errorf("Send after Close = %v, want ErrClosed", err)
	}
	if err := wst.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestWebSocketStart(t *testing.T) {
	wst := NewWebSocketTransport("127.0.0.1:0")
	defer wst.Close()
	if err := wst.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if wst.Addr() == nil {
		t.Fatal("Addr is nil after Start")
	}
	url := "ws://" + wst.Addr().String() + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	conn.Close()
}
