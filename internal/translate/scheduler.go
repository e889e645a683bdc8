package translate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tobfel/glossia/internal/tracker"
)

const (
	defaultThrottleInterval = 1200 * time.Millisecond
	defaultMaxFailures      = 3
)

// SchedulerOption configures a [Scheduler].
type SchedulerOption func(*Scheduler)

// WithThrottleInterval sets the minimum spacing between translation requests
// for a single speaker.
func WithThrottleInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.throttle = d
		}
	}
}

// WithMaxFailures sets how many consecutive failures for one speaker's
// current utterance are tolerated before the scheduler gives up on it.
func WithMaxFailures(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.maxFailures = n
		}
	}
}

// ResultFunc receives translation outcomes. Implementations apply the status
// to the identified utterance and refresh the display.
type ResultFunc func(speakerID, utteranceID string, status tracker.TranslationStatus)

// Scheduler decides when to actually call the translation client for a
// still-growing utterance. Per speaker it keeps at most one request in
// flight and at most one pending text; a newer text overwrites the pending
// slot, so a burst of caption ticks collapses into a single request per
// throttle window carrying the latest text.
type Scheduler struct {
	log         *slog.Logger
	client      *Client
	cache       *Cache
	throttle    time.Duration
	maxFailures int
	source      string
	target      string
	onResult    ResultFunc

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	speakers map[string]*speakerState
	active   bool
}

// speakerState is one speaker's scheduling bookkeeping. The epoch counter
// invalidates throttle timers armed for a state that has since moved on.
type speakerState struct {
	utteranceID  string
	failures     int
	inFlight     bool
	pending      *pendingRequest
	lastDispatch time.Time
	timer        *time.Timer
	epoch        uint64
}

// pendingRequest is the single overwritable slot holding the newest text
// waiting for the throttle window to open.
type pendingRequest struct {
	utteranceID string
	text        string
}

// NewScheduler creates a Scheduler translating from source to target through
// client. Results are delivered via onResult, never while holding the
// scheduler's lock.
func NewScheduler(client *Client, cache *Cache, source, target string, onResult ResultFunc, log *slog.Logger, opts ...SchedulerOption) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		log:         log,
		client:      client,
		cache:       cache,
		throttle:    defaultThrottleInterval,
		maxFailures: defaultMaxFailures,
		source:      source,
		target:      target,
		onResult:    onResult,
		ctx:         ctx,
		cancel:      cancel,
		speakers:    make(map[string]*speakerState),
		active:      true,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Schedule requests a translation for the utterance's current text. A cache
// hit is delivered immediately without a network call; otherwise the text
// lands in the speaker's pending slot and is dispatched when the throttle
// window opens and no request is in flight.
func (s *Scheduler) Schedule(u tracker.Utterance) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}

	st := s.speakerLocked(u.SpeakerID)
	if st.utteranceID != u.ID {
		// A new utterance starts with a clean failure slate.
		st.utteranceID = u.ID
		st.failures = 0
	}

	if translated, ok := s.cache.Get(s.source, s.target, u.SourceText); ok {
		s.mu.Unlock()
		s.onResult(u.SpeakerID, u.ID, tracker.Succeeded(translated))
		return
	}

	if st.failures >= s.maxFailures {
		s.mu.Unlock()
		s.onResult(u.SpeakerID, u.ID, tracker.Unavailable())
		return
	}

	st.pending = &pendingRequest{utteranceID: u.ID, text: u.SourceText}
	if st.inFlight || st.timer != nil {
		// The completion handler or the armed timer picks the slot up.
		s.mu.Unlock()
		return
	}

	// Even the first request waits out the throttle window, so a burst of
	// caption ticks for a fresh utterance collapses into one call.
	wait := s.throttle
	if !st.lastDispatch.IsZero() {
		wait = s.throttle - time.Since(st.lastDispatch)
	}
	if wait > 0 {
		s.armTimerLocked(u.SpeakerID, st, wait)
		s.mu.Unlock()
		return
	}
	s.dispatchLocked(u.SpeakerID, st)
	s.mu.Unlock()
}

// FinalAttempt makes one immediate, throttle-exempt attempt for an utterance
// being finalized with a still-pending translation. A failure is terminal
// for the utterance: it is reported as unavailable.
func (s *Scheduler) FinalAttempt(u tracker.Utterance) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	if translated, ok := s.cache.Get(s.source, s.target, u.SourceText); ok {
		s.mu.Unlock()
		s.onResult(u.SpeakerID, u.ID, tracker.Succeeded(translated))
		return
	}
	if st, ok := s.speakers[u.SpeakerID]; ok && st.failures >= s.maxFailures {
		s.mu.Unlock()
		s.onResult(u.SpeakerID, u.ID, tracker.Unavailable())
		return
	}
	s.mu.Unlock()

	go func() {
		translated, err := s.client.Translate(s.ctx, s.source, s.target, u.SourceText)
		if !s.isActive() {
			return
		}
		if err != nil {
			s.log.Warn("final translation attempt failed",
				"speaker", u.SpeakerID, "utterance", u.ID, "error", err)
			s.onResult(u.SpeakerID, u.ID, tracker.Unavailable())
			return
		}
		s.cache.Put(s.source, s.target, u.SourceText, translated)
		s.onResult(u.SpeakerID, u.ID, tracker.Succeeded(translated))
	}()
}

// Clear resets all per-speaker state and the cache. Armed timers are
// canceled; in-flight results are dropped by their epoch check.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.speakers {
		st.epoch++
		if st.timer != nil {
			st.timer.Stop()
		}
	}
	s.speakers = make(map[string]*speakerState)
	s.cache.Clear()
}

// Stop deactivates the scheduler. Timers are canceled, in-flight requests
// are aborted and their results discarded.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.active = false
	for _, st := range s.speakers {
		st.epoch++
		if st.timer != nil {
			st.timer.Stop()
		}
	}
	s.mu.Unlock()
	s.cancel()
}

// ── internals ──────────────────────────────────────────────────────────────────

func (s *Scheduler) isActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Scheduler) speakerLocked(speakerID string) *speakerState {
	st, ok := s.speakers[speakerID]
	if !ok {
		st = &speakerState{}
		s.speakers[speakerID] = st
	}
	return st
}

func (s *Scheduler) armTimerLocked(speakerID string, st *speakerState, wait time.Duration) {
	st.epoch++
	epoch := st.epoch
	st.timer = time.AfterFunc(wait, func() {
		s.flush(speakerID, epoch)
	})
}

// flush is the throttle-timer callback: dispatch whatever is pending.
func (s *Scheduler) flush(speakerID string, epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.speakers[speakerID]
	if !ok || !s.active || st.epoch != epoch {
		return
	}
	st.timer = nil
	if st.pending == nil || st.inFlight {
		return
	}
	s.dispatchLocked(speakerID, st)
}

// dispatchLocked takes the pending slot and issues the network request.
// Must be called with s.mu held.
func (s *Scheduler) dispatchLocked(speakerID string, st *speakerState) {
	req := *st.pending
	st.pending = nil
	st.inFlight = true
	st.lastDispatch = time.Now()
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}

	go func() {
		translated, err := s.client.Translate(s.ctx, s.source, s.target, req.text)
		s.complete(speakerID, req, translated, err)
	}()
}

// complete handles a request's outcome and dispatches any newer pending text.
func (s *Scheduler) complete(speakerID string, req pendingRequest, translated string, err error) {
	s.mu.Lock()
	st, ok := s.speakers[speakerID]
	if !ok || !s.active {
		s.mu.Unlock()
		return
	}
	st.inFlight = false

	var emit *tracker.TranslationStatus
	if err != nil {
		st.failures++
		s.log.Warn("translation failed",
			"speaker", speakerID, "utterance", req.utteranceID,
			"failures", st.failures, "error", err)
		if st.failures >= s.maxFailures && st.utteranceID == req.utteranceID {
			// Give up on this utterance; the last known good translation
			// stays on screen until the status below replaces it.
			status := tracker.Unavailable()
			emit = &status
			st.pending = nil
		}
	} else {
		st.failures = 0
		s.cache.Put(s.source, s.target, req.text, translated)
		status := tracker.Succeeded(translated)
		emit = &status
	}

	// A newer text may have arrived while this request was in flight. Drop
	// it if it matches what was just translated, otherwise re-dispatch after
	// the throttle window.
	if st.pending != nil {
		if err == nil && st.pending.text == req.text && st.pending.utteranceID == req.utteranceID {
			st.pending = nil
		} else if st.timer == nil {
			wait := s.throttle - time.Since(st.lastDispatch)
			if wait < 0 {
				wait = 0
			}
			s.armTimerLocked(speakerID, st, wait)
		}
	}
	s.mu.Unlock()

	if emit != nil {
		s.onResult(speakerID, req.utteranceID, *emit)
	}
}
