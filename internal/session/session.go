// Package session assembles the caption translation pipeline for one
// activation: extractor, debouncer, utterance tracker, translation scheduler
// and presentation sink, with a single lifecycle (start, clear, stop).
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tobfel/glossia/internal/caption"
	"github.com/tobfel/glossia/internal/config"
	"github.com/tobfel/glossia/internal/observe"
	"github.com/tobfel/glossia/internal/render"
	"github.com/tobfel/glossia/internal/tracker"
	"github.com/tobfel/glossia/internal/translate"
	provider "github.com/tobfel/glossia/pkg/provider/translate"
)

// Params carries everything a Session needs. Pipeline timing fields with
// zero values fall back to their package defaults.
type Params struct {
	InputLang   string
	OutputLang  string
	DisplayMode config.DisplayMode
	Pipeline    config.PipelineConfig

	Provider provider.Provider
	Sink     render.Sink
	Log      *slog.Logger

	// Metrics defaults to [observe.DefaultMetrics] when nil.
	Metrics *observe.Metrics
}

// Status is a point-in-time summary of a session for the control API.
type Status struct {
	IsActive       bool   `json:"isActive"`
	InputLang      string `json:"inputLang,omitempty"`
	OutputLang     string `json:"outputLang,omitempty"`
	DisplayMode    string `json:"displayMode,omitempty"`
	Provider       string `json:"provider,omitempty"`
	ActiveSpeakers int    `json:"activeSpeakers"`
	Finalized      int    `json:"finalizedUtterances"`

	StartedAt time.Time `json:"startedAt,omitzero"`
}

// Session is one activation of the translation pipeline. All cross-component
// state lives here rather than at package scope, so sessions are fully
// independent and testable.
type Session struct {
	log     *slog.Logger
	sink    render.Sink
	metrics *observe.Metrics
	langs   [2]string

	extractor *caption.Extractor
	debounce  *caption.Debouncer
	track     *tracker.Tracker
	scheduler *translate.Scheduler
	client    *translate.Client

	probeRetries int
	probeBackoff time.Duration

	mu          sync.Mutex
	displayMode config.DisplayMode
	snapshots   []caption.Snapshot
	active      bool
	startedAt   time.Time
	stopOnce    sync.Once
}

// New assembles a Session from params. The session is inert until Start.
func New(p Params) *Session {
	pipe := p.Pipeline

	s := &Session{
		log:          p.Log,
		sink:         p.Sink,
		metrics:      p.Metrics,
		langs:        [2]string{p.InputLang, p.OutputLang},
		displayMode:  p.DisplayMode,
		extractor:    caption.NewExtractor(),
		probeRetries: orInt(pipe.ProbeRetries, 3),
		probeBackoff: orDur(pipe.ProbeBackoff, 2*time.Second),
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}

	s.debounce = caption.NewDebouncer(orDur(pipe.DebounceInterval, 300*time.Millisecond), s.processSnapshots)

	s.track = tracker.New(p.Log,
		tracker.WithSegmentTimeout(orDur(pipe.SegmentTimeout, 3*time.Second)),
		tracker.WithContinuationRatio(pipe.ContinuationRatio),
		tracker.WithHistory(orInt(pipe.HistorySize, 20), orDur(pipe.HistoryMaxAge, 30*time.Minute)),
	)

	s.client = translate.NewClient(p.Provider, p.Log,
		translate.WithTimeout(orDur(pipe.RequestTimeout, 6*time.Second)),
		translate.WithRetries(orInt(pipe.RequestRetries, 2)),
		translate.WithBackoff(orDur(pipe.RetryBackoff, 750*time.Millisecond)),
		translate.WithMinLength(orInt(pipe.MinTranslateLength, 3)),
	)

	s.scheduler = translate.NewScheduler(
		s.client,
		translate.NewCache(orInt(pipe.CacheCapacity, 256)),
		p.InputLang, p.OutputLang,
		s.onTranslation,
		p.Log,
		translate.WithThrottleInterval(orDur(pipe.ThrottleInterval, 1200*time.Millisecond)),
		translate.WithMaxFailures(orInt(pipe.MaxFailures, 3)),
	)

	s.track.SetHooks(tracker.Hooks{
		OnActiveUpdate: s.onActiveUpdate,
		OnFinalized:    s.onFinalized,
	})
	return s
}

// Start probes translator connectivity and activates the pipeline. The probe
// is retried a few times; if it never succeeds, Start fails and the session
// stays inert so the failure is visible to the user immediately rather than
// trickling out as per-utterance errors.
func (s *Session) Start(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt <= s.probeRetries; attempt++ {
		if attempt > 0 {
			s.log.Info("retrying translator probe", "attempt", attempt, "error", lastErr)
			select {
			case <-time.After(s.probeBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if lastErr = s.client.Probe(ctx); lastErr == nil {
			break
		}
	}
	if lastErr != nil {
		return fmt.Errorf("session: translator %s unreachable: %w", s.client.ProviderName(), lastErr)
	}

	s.mu.Lock()
	s.active = true
	s.startedAt = time.Now()
	s.mu.Unlock()
	s.metrics.ActiveSessions.Add(ctx, 1)

	s.log.Info("translation session started",
		"provider", s.client.ProviderName(),
		"input", s.langs[0], "output", s.langs[1])
	s.refresh()
	return nil
}

// HandleSnapshot queues a caption snapshot for processing. Bursts are
// coalesced by the debouncer; processing happens on its trailing edge.
func (s *Session) HandleSnapshot(snap caption.Snapshot) {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.snapshots = append(s.snapshots, snap)
	s.mu.Unlock()
	s.debounce.Notify()
}

// Clear drops all utterance, scheduling and deduplication state. The session
// stays active; the next snapshot is processed from scratch.
func (s *Session) Clear() {
	s.mu.Lock()
	s.snapshots = nil
	s.mu.Unlock()

	s.track.Clear()
	s.scheduler.Clear()
	s.extractor.Reset()
	s.refresh()
	s.log.Info("translation session cleared")
}

// Stop deactivates the session: all timers are canceled, no further network
// calls are dispatched, and results of in-flight calls are discarded.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		wasStarted := !s.startedAt.IsZero()
		s.active = false
		s.mu.Unlock()
		if wasStarted {
			s.metrics.ActiveSessions.Add(context.Background(), -1)
		}

		s.debounce.Stop()
		s.track.Stop()
		s.scheduler.Stop()
		s.log.Info("translation session stopped")
	})
}

// SetDisplayMode switches the UI surface and pushes a refreshed view.
func (s *Session) SetDisplayMode(mode config.DisplayMode) {
	s.mu.Lock()
	s.displayMode = mode
	s.mu.Unlock()
	s.refresh()
}

// Status reports the session's current state.
func (s *Session) Status() Status {
	s.mu.Lock()
	active := s.active
	mode := s.displayMode
	startedAt := s.startedAt
	s.mu.Unlock()

	finalized := 0
	for _, list := range s.track.Finalized() {
		finalized += len(list)
	}
	return Status{
		IsActive:       active,
		InputLang:      s.langs[0],
		OutputLang:     s.langs[1],
		DisplayMode:    string(mode),
		Provider:       s.client.ProviderName(),
		ActiveSpeakers: len(s.track.Active()),
		Finalized:      finalized,
		StartedAt:      startedAt,
	}
}

// ── pipeline wiring ────────────────────────────────────────────────────────────

// processSnapshots is the debouncer's trailing-edge callback: drain the
// queued snapshots and feed the fresh fragments into the tracker.
func (s *Session) processSnapshots() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	queued := s.snapshots
	s.snapshots = nil
	s.mu.Unlock()
	s.metrics.SnapshotsProcessed.Add(context.Background(), int64(len(queued)))

	for _, snap := range queued {
		for _, frag := range s.extractor.Extract(snap) {
			s.track.Observe(frag.SpeakerName, frag.Text)
		}
	}
}

// onActiveUpdate reacts to a created or merged utterance.
func (s *Session) onActiveUpdate(u tracker.Utterance) {
	s.scheduler.Schedule(u)
	s.refresh()
}

// onFinalized reacts to a closed utterance. A still-pending translation gets
// one final forced attempt.
func (s *Session) onFinalized(u tracker.Utterance) {
	s.metrics.RecordUtteranceFinalized(context.Background(), u.SpeakerID)
	if u.Translation.Kind == tracker.StatusPending {
		s.scheduler.FinalAttempt(u)
	}
	s.refresh()
}

// onTranslation receives scheduler results. The active check gates late
// results of calls that were in flight when the session stopped.
func (s *Session) onTranslation(speakerID, utteranceID string, status tracker.TranslationStatus) {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if !active {
		return
	}
	if s.track.SetTranslation(speakerID, utteranceID, status) {
		s.refresh()
	}
}

// refresh pushes the full current state to the sink.
func (s *Session) refresh() {
	s.mu.Lock()
	mode := s.displayMode
	s.mu.Unlock()
	s.sink.Render(render.BuildView(s.track.Active(), s.track.Finalized(), string(mode)))
}

func orDur(v config.Duration, def time.Duration) time.Duration {
	if v.Std() > 0 {
		return v.Std()
	}
	return def
}

func orInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
