package render

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"

	"github.com/tobfel/glossia/internal/observe"
)

// Compile-time assertion that PushServer satisfies the sink interface.
var _ Sink = (*PushServer)(nil)

// subscriberBuffer bounds how many views can queue per subscriber before the
// oldest is dropped. The view is a full state snapshot, so dropping an old
// one loses nothing.
const subscriberBuffer = 8

// PushServer is a [Sink] that broadcasts every rendered view as JSON to all
// connected WebSocket subscribers. It is an [http.Handler] and is mounted by
// the app on /ws/view. A subscriber that connects mid-session immediately
// receives the latest view.
type PushServer struct {
	log *slog.Logger

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	latest      *View
	closed      bool
}

type subscriber struct {
	ch chan View
}

// NewPushServer returns a PushServer that logs through log.
func NewPushServer(log *slog.Logger) *PushServer {
	return &PushServer{
		log:         log,
		subscribers: make(map[*subscriber]struct{}),
	}
}

// Render implements [Sink]. The view is queued to every subscriber; slow
// subscribers lose older views rather than blocking the pipeline.
func (ps *PushServer) Render(view View) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.closed {
		return
	}
	ps.latest = &view
	for sub := range ps.subscribers {
		sub.offer(view)
	}
}

// ServeHTTP upgrades the request to a WebSocket and streams views to it
// until the client disconnects.
func (ps *PushServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		ps.log.Warn("view push: websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	sub := &subscriber{ch: make(chan View, subscriberBuffer)}

	ps.mu.Lock()
	if ps.closed {
		ps.mu.Unlock()
		return
	}
	ps.subscribers[sub] = struct{}{}
	if ps.latest != nil {
		sub.offer(*ps.latest)
	}
	ps.mu.Unlock()
	observe.DefaultMetrics().ViewSubscribers.Add(r.Context(), 1)

	defer func() {
		ps.mu.Lock()
		delete(ps.subscribers, sub)
		ps.mu.Unlock()
		observe.DefaultMetrics().ViewSubscribers.Add(context.Background(), -1)
	}()

	ps.log.Info("view push: subscriber connected", "remote", r.RemoteAddr)
	ps.writeLoop(r.Context(), conn, sub)
	ps.log.Info("view push: subscriber disconnected", "remote", r.RemoteAddr)
}

// Close disconnects all subscribers and rejects new ones.
func (ps *PushServer) Close() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.closed {
		return
	}
	ps.closed = true
	for sub := range ps.subscribers {
		close(sub.ch)
	}
	ps.subscribers = make(map[*subscriber]struct{})
}

func (ps *PushServer) writeLoop(ctx context.Context, conn *websocket.Conn, sub *subscriber) {
	for {
		select {
		case view, ok := <-sub.ch:
			if !ok {
				return
			}
			data, err := json.Marshal(view)
			if err != nil {
				ps.log.Error("view push: marshal failed", "error", err)
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// offer enqueues a view, dropping the oldest queued one when full. Must be
// called with the server's lock held.
func (s *subscriber) offer(view View) {
	for {
		select {
		case s.ch <- view:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}
