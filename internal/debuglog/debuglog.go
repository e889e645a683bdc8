// Package debuglog keeps a bounded, timestamped in-memory buffer of recent
// log records so the control API can expose them for troubleshooting without
// shipping logs anywhere. It plugs into slog as a handler that tees records
// into the buffer while a wrapped handler keeps writing them normally.
package debuglog

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Entry is one captured log record.
type Entry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
	Attrs   string    `json:"attrs,omitempty"`
}

// Buffer is a bounded ring of recent log entries. When full, the oldest
// entry is overwritten. Thread-safe for concurrent use.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

// NewBuffer creates a buffer retaining the last capacity entries.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = 200
	}
	return &Buffer{entries: make([]Entry, capacity)}
}

// Add records an entry, evicting the oldest when the buffer is full.
func (b *Buffer) Add(e Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[b.next] = e
	b.next++
	if b.next == len(b.entries) {
		b.next = 0
		b.full = true
	}
}

// Entries returns the captured entries in chronological order.
func (b *Buffer) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.full {
		out := make([]Entry, b.next)
		copy(out, b.entries[:b.next])
		return out
	}
	out := make([]Entry, 0, len(b.entries))
	out = append(out, b.entries[b.next:]...)
	out = append(out, b.entries[:b.next]...)
	return out
}

// Len returns how many entries are currently retained.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.full {
		return len(b.entries)
	}
	return b.next
}

// Clear drops all retained entries.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next = 0
	b.full = false
}

// Compile-time assertion that Handler satisfies slog.Handler.
var _ slog.Handler = (*Handler)(nil)

// Handler is a [slog.Handler] that records every handled record into a
// [Buffer] and forwards it to the wrapped handler.
type Handler struct {
	inner  slog.Handler
	buffer *Buffer
	attrs  []slog.Attr
}

// NewHandler wraps inner so that all records also land in buffer.
func NewHandler(inner slog.Handler, buffer *Buffer) *Handler {
	return &Handler{inner: inner, buffer: buffer}
}

// Enabled defers to the wrapped handler.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle records the entry and forwards it.
func (h *Handler) Handle(ctx context.Context, rec slog.Record) error {
	h.buffer.Add(Entry{
		Time:    rec.Time,
		Level:   rec.Level.String(),
		Message: rec.Message,
		Attrs:   formatAttrs(h.attrs, rec),
	})
	return h.inner.Handle(ctx, rec)
}

// WithAttrs returns a handler carrying the additional attributes.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &Handler{inner: h.inner.WithAttrs(attrs), buffer: h.buffer, attrs: merged}
}

// WithGroup returns a handler with the group applied to the wrapped handler.
// Group nesting is flattened in the captured entries.
func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{inner: h.inner.WithGroup(name), buffer: h.buffer, attrs: h.attrs}
}

// formatAttrs flattens handler and record attributes to "k=v" pairs.
func formatAttrs(base []slog.Attr, rec slog.Record) string {
	out := ""
	write := func(a slog.Attr) {
		if out != "" {
			out += " "
		}
		out += a.Key + "=" + a.Value.String()
	}
	for _, a := range base {
		write(a)
	}
	rec.Attrs(func(a slog.Attr) bool {
		write(a)
		return true
	})
	return out
}
