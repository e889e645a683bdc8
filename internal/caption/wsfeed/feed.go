// Package wsfeed implements a caption.Source fed by a WebSocket endpoint.
//
// The capture side (a browser extension or any other scraper) connects to the
// endpoint and streams JSON snapshot messages. The wire schema is lenient:
// several field spellings are accepted per value, tried in priority order, so
// capture layers written against different page revisions keep working.
package wsfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/tobfel/glossia/internal/caption"
)

// Compile-time assertion that Feed satisfies the caption source interface.
var _ caption.Source = (*Feed)(nil)

// Feed accepts WebSocket connections from capture clients and delivers every
// decoded snapshot to the handler registered via Run. It is an [http.Handler]
// and is mounted by the app on /ws/captions.
type Feed struct {
	log *slog.Logger

	mu     sync.Mutex
	handle func(caption.Snapshot)
}

// New returns a Feed that logs through log.
func New(log *slog.Logger) *Feed {
	return &Feed{log: log}
}

// Run registers handle as the snapshot consumer and blocks until ctx is
// canceled. Connections arriving before Run have their snapshots dropped.
func (f *Feed) Run(ctx context.Context, handle func(caption.Snapshot)) error {
	f.mu.Lock()
	f.handle = handle
	f.mu.Unlock()

	<-ctx.Done()

	f.mu.Lock()
	f.handle = nil
	f.mu.Unlock()
	return ctx.Err()
}

// ServeHTTP upgrades the request to a WebSocket and reads snapshot messages
// until the client disconnects. Malformed messages are logged and skipped;
// they never terminate the connection.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// The capture extension connects from the page's origin.
		InsecureSkipVerify: true,
	})
	if err != nil {
		f.log.Warn("caption feed: websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	f.log.Info("caption feed: client connected", "remote", r.RemoteAddr)
	f.readLoop(r.Context(), conn)
	f.log.Info("caption feed: client disconnected", "remote", r.RemoteAddr)
}

func (f *Feed) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		snap, err := decodeSnapshot(data)
		if err != nil {
			f.log.Warn("caption feed: skipping malformed snapshot", "error", err)
			continue
		}
		f.deliver(snap)
	}
}

func (f *Feed) deliver(snap caption.Snapshot) {
	f.mu.Lock()
	handle := f.handle
	f.mu.Unlock()
	if handle == nil {
		return
	}
	handle(snap)
}

// ── Wire schema ────────────────────────────────────────────────────────────────

type wireFragment struct {
	Speaker     string `json:"speaker"`
	SpeakerName string `json:"speakerName"`
	Name        string `json:"name"`

	Text    string `json:"text"`
	Caption string `json:"caption"`
	Content string `json:"content"`
}

type wireSnapshot struct {
	Captions  []wireFragment `json:"captions"`
	Fragments []wireFragment `json:"fragments"`

	ActiveSpeaker string `json:"activeSpeaker"`

	// CapturedAt is optional, in Unix milliseconds. Zero means "now".
	CapturedAt int64 `json:"capturedAt"`
}

func decodeSnapshot(data []byte) (caption.Snapshot, error) {
	var wire wireSnapshot
	if err := json.Unmarshal(data, &wire); err != nil {
		return caption.Snapshot{}, fmt.Errorf("wsfeed: decode snapshot: %w", err)
	}

	raw := wire.Captions
	if len(raw) == 0 {
		raw = wire.Fragments
	}

	snap := caption.Snapshot{
		ActiveSpeaker: wire.ActiveSpeaker,
		CapturedAt:    time.Now(),
	}
	if wire.CapturedAt > 0 {
		snap.CapturedAt = time.UnixMilli(wire.CapturedAt)
	}
	for _, frag := range raw {
		snap.Fragments = append(snap.Fragments, caption.Fragment{
			SpeakerName: firstNonEmpty(frag.Speaker, frag.SpeakerName, frag.Name),
			Text:        firstNonEmpty(frag.Text, frag.Caption, frag.Content),
		})
	}
	return snap, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
