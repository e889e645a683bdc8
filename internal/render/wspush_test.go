package render

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func startPush(t *testing.T) (*PushServer, *httptest.Server) {
	t.Helper()
	ps := NewPushServer(testLogger())
	t.Cleanup(ps.Close)
	srv := httptest.NewServer(ps)
	t.Cleanup(srv.Close)
	return ps, srv
}

func subscribe(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, wsURL(srv), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readView(t *testing.T, conn *websocket.Conn) View {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var view View
	if err := json.Unmarshal(data, &view); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return view
}

func sampleView(mode string) View {
	return View{
		DisplayMode: mode,
		GeneratedAt: time.Now(),
		Finalized:   map[string][]UtteranceView{},
		Active: map[string]UtteranceView{
			"alice": {ID: "u1", SpeakerID: "alice", SourceText: "hello", Status: "pending"},
		},
	}
}

func TestPushServer_BroadcastsToSubscriber(t *testing.T) {
	ps, srv := startPush(t)
	conn := subscribe(t, srv)
	// Let the subscriber register before rendering.
	time.Sleep(20 * time.Millisecond)

	ps.Render(sampleView("window"))

	view := readView(t, conn)
	if view.DisplayMode != "window" {
		t.Errorf("DisplayMode = %q", view.DisplayMode)
	}
	if view.Active["alice"].SourceText != "hello" {
		t.Errorf("active = %+v", view.Active)
	}
}

func TestPushServer_LateSubscriberGetsLatestView(t *testing.T) {
	ps, srv := startPush(t)

	ps.Render(sampleView("window"))
	ps.Render(sampleView("overlay"))

	conn := subscribe(t, srv)
	view := readView(t, conn)
	if view.DisplayMode != "overlay" {
		t.Errorf("late subscriber got %q, want the latest view", view.DisplayMode)
	}
}

func TestPushServer_RenderIsIdempotent(t *testing.T) {
	ps, srv := startPush(t)
	conn := subscribe(t, srv)
	time.Sleep(20 * time.Millisecond)

	// Redundant renders of the same state must all be harmless.
	for i := 0; i < 3; i++ {
		ps.Render(sampleView("window"))
	}
	for i := 0; i < 3; i++ {
		if view := readView(t, conn); view.DisplayMode != "window" {
			t.Fatalf("render %d delivered %q", i, view.DisplayMode)
		}
	}
}

func TestPushServer_RenderAfterCloseIsNoop(t *testing.T) {
	ps, _ := startPush(t)
	ps.Close()
	// Must not panic or block.
	ps.Render(sampleView("window"))
}
