package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tobfel/glossia/internal/caption"
	"github.com/tobfel/glossia/internal/config"
)

// ErrNotActive is returned by operations that require a running session.
var ErrNotActive = errors.New("session: no active translation session")

// Factory builds a Session for the requested languages and display mode.
// The app injects it so the manager never touches provider construction.
type Factory func(inputLang, outputLang string, mode config.DisplayMode) (*Session, error)

// Manager owns the at most one current [Session] and serializes lifecycle
// operations coming from the control API and the caption feed.
type Manager struct {
	log     *slog.Logger
	factory Factory

	mu      sync.Mutex
	current *Session
}

// NewManager creates a Manager that builds sessions through factory.
func NewManager(factory Factory, log *slog.Logger) *Manager {
	return &Manager{log: log, factory: factory}
}

// Start activates a new session. A still-running session is stopped first,
// so starting is always a fresh start with all timers re-armed from zero.
func (m *Manager) Start(ctx context.Context, inputLang, outputLang string, mode config.DisplayMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		m.current.Stop()
		m.current = nil
	}

	sess, err := m.factory(inputLang, outputLang, mode)
	if err != nil {
		return fmt.Errorf("session: build: %w", err)
	}
	if err := sess.Start(ctx); err != nil {
		return err
	}
	m.current = sess
	return nil
}

// Stop deactivates the current session.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return ErrNotActive
	}
	m.current.Stop()
	m.current = nil
	return nil
}

// Clear resets the current session's utterance state.
func (m *Manager) Clear() error {
	sess := m.session()
	if sess == nil {
		return ErrNotActive
	}
	sess.Clear()
	return nil
}

// SetDisplayMode switches the current session's UI surface.
func (m *Manager) SetDisplayMode(mode config.DisplayMode) error {
	sess := m.session()
	if sess == nil {
		return ErrNotActive
	}
	sess.SetDisplayMode(mode)
	return nil
}

// Status reports the current session's status, or an inactive zero status.
func (m *Manager) Status() Status {
	sess := m.session()
	if sess == nil {
		return Status{IsActive: false}
	}
	return sess.Status()
}

// HandleSnapshot forwards a caption snapshot to the current session, if any.
// Snapshots arriving with no active session are dropped silently; the feed
// keeps running across session restarts.
func (m *Manager) HandleSnapshot(snap caption.Snapshot) {
	if sess := m.session(); sess != nil {
		sess.HandleSnapshot(snap)
	}
}

// Shutdown stops any current session. Used on daemon exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		m.current.Stop()
		m.current = nil
	}
}

func (m *Manager) session() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}
