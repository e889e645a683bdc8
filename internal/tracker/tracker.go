package tracker

import (
	"log/slog"
	"sync"
	"time"
)

const (
	defaultSegmentTimeout = 3 * time.Second
	defaultHistorySize    = 20
	defaultHistoryMaxAge  = 30 * time.Minute
)

// Hooks are the tracker's outbound signals. Both may be nil. They are always
// invoked outside the tracker's lock, so implementations may call back into
// the tracker.
type Hooks struct {
	// OnActiveUpdate fires when an active utterance is created or merged.
	// Receivers typically schedule a translation and refresh the display.
	OnActiveUpdate func(Utterance)

	// OnFinalized fires after an utterance has moved to history. If the
	// utterance's translation is still pending the receiver should make one
	// final translation attempt for it.
	OnFinalized func(Utterance)
}

// Option configures a [Tracker].
type Option func(*Tracker)

// WithSegmentTimeout sets the silence window after which an active utterance
// is auto-finalized.
func WithSegmentTimeout(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.segmentTimeout = d
		}
	}
}

// WithContinuationRatio sets the normalized edit-distance threshold of the
// continuation test.
func WithContinuationRatio(ratio float64) Option {
	return func(t *Tracker) { t.classify.MaxEditRatio = ratio }
}

// WithHistory bounds the finalized-utterance history per speaker.
func WithHistory(maxSize int, maxAge time.Duration) Option {
	return func(t *Tracker) { t.history = NewHistory(maxSize, maxAge) }
}

// Tracker maintains at most one active utterance per speaker and the bounded
// history of finalized ones. All methods are safe for concurrent use;
// mutations to a given speaker's state are serialized by the tracker's lock.
type Tracker struct {
	log            *slog.Logger
	segmentTimeout time.Duration
	classify       Classifier
	history        *History
	hooks          Hooks

	mu      sync.Mutex
	slots   map[string]*speakerSlot
	seq     uint64
	stopped bool
}

// speakerSlot holds one speaker's mutable state. The epoch counter
// invalidates finalize timers that fire after the utterance they were armed
// for has already changed or closed.
type speakerSlot struct {
	speakerName string
	active      *Utterance
	timer       *time.Timer
	epoch       uint64
}

// New creates a Tracker with the given logger and options.
func New(log *slog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		log:            log,
		segmentTimeout: defaultSegmentTimeout,
		slots:          make(map[string]*speakerSlot),
	}
	for _, o := range opts {
		o(t)
	}
	t.classify.SegmentTimeout = t.segmentTimeout
	if t.history == nil {
		t.history = NewHistory(defaultHistorySize, defaultHistoryMaxAge)
	}
	return t
}

// SetHooks installs the outbound signals. Must be called before the first
// Observe.
func (t *Tracker) SetHooks(h Hooks) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks = h
}

// Observe feeds one freshly extracted caption fragment into the state
// machine. If the fragment continues the speaker's active utterance it is
// merged in place and the finalize timer re-arms; otherwise the previous
// utterance is finalized immediately and a new one starts.
func (t *Tracker) Observe(speakerName, text string) {
	now := time.Now()
	speakerID := SpeakerKey(speakerName)

	t.mu.Lock()
	if t.stopped || text == "" {
		t.mu.Unlock()
		return
	}

	slot, ok := t.slots[speakerID]
	if !ok {
		slot = &speakerSlot{}
		t.slots[speakerID] = slot
	}
	slot.speakerName = speakerName

	var finalized *Utterance
	if slot.active != nil {
		since := now.Sub(slot.active.LastUpdateAt)
		if t.classify.IsContinuation(slot.active.SourceText, text, since) {
			t.mergeLocked(slot, speakerID, text, now)
			updated := *slot.active
			t.mu.Unlock()
			t.signalUpdate(updated)
			return
		}
		finalized = t.finalizeLocked(slot, speakerID)
	}

	t.startLocked(slot, speakerID, speakerName, text, now)
	started := *slot.active
	t.mu.Unlock()

	if finalized != nil {
		t.signalFinalized(*finalized)
	}
	t.signalUpdate(started)
}

// Finalize closes the speaker's active utterance immediately, if any, and
// reports whether one was closed.
func (t *Tracker) Finalize(speakerID string) bool {
	t.mu.Lock()
	slot, ok := t.slots[speakerID]
	if !ok || slot.active == nil {
		t.mu.Unlock()
		return false
	}
	finalized := t.finalizeLocked(slot, speakerID)
	t.mu.Unlock()

	t.signalFinalized(*finalized)
	return true
}

// SetTranslation applies a translation result to the identified utterance,
// whether still active or already finalized. It reports whether the
// utterance was found.
func (t *Tracker) SetTranslation(speakerID, utteranceID string, status TranslationStatus) bool {
	t.mu.Lock()
	if slot, ok := t.slots[speakerID]; ok && slot.active != nil && slot.active.ID == utteranceID {
		slot.active.Translation = status
		t.mu.Unlock()
		return true
	}
	t.mu.Unlock()

	return t.history.SetTranslation(speakerID, utteranceID, status)
}

// Active returns a snapshot of all in-progress utterances keyed by speaker ID.
func (t *Tracker) Active() map[string]Utterance {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]Utterance)
	for speakerID, slot := range t.slots {
		if slot.active != nil {
			out[speakerID] = *slot.active
		}
	}
	return out
}

// Finalized returns a snapshot of the finalized history keyed by speaker ID.
func (t *Tracker) Finalized() map[string][]Utterance {
	return t.history.BySpeaker()
}

// Clear drops all active and finalized state and cancels all timers. The
// tracker stays usable afterwards.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, slot := range t.slots {
		slot.epoch++
		if slot.timer != nil {
			slot.timer.Stop()
		}
	}
	t.slots = make(map[string]*speakerSlot)
	t.history.Clear()
}

// Stop cancels all timers and rejects further observations. Active
// utterances are left unfinalized; their results no longer matter.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopped = true
	for _, slot := range t.slots {
		slot.epoch++
		if slot.timer != nil {
			slot.timer.Stop()
		}
	}
}

// ── internals ──────────────────────────────────────────────────────────────────

// startLocked creates a fresh active utterance and arms its finalize timer.
func (t *Tracker) startLocked(slot *speakerSlot, speakerID, speakerName, text string, now time.Time) {
	t.seq++
	slot.active = &Utterance{
		ID:           newUtteranceID(now, t.seq),
		SpeakerID:    speakerID,
		SpeakerName:  speakerName,
		SourceText:   text,
		Translation:  Pending(),
		State:        StateActive,
		StartedAt:    now,
		LastUpdateAt: now,
	}
	t.armTimerLocked(slot, speakerID)
}

// mergeLocked folds a continuation fragment into the active utterance. The
// new text replaces the old only when it differs; it is never appended, so a
// re-sent growing line cannot duplicate itself.
func (t *Tracker) mergeLocked(slot *speakerSlot, speakerID, text string, now time.Time) {
	if text != slot.active.SourceText {
		slot.active.SourceText = text
	}
	slot.active.LastUpdateAt = now
	t.armTimerLocked(slot, speakerID)
}

// finalizeLocked closes the active utterance, moves it to history and frees
// the slot for the speaker's next utterance. Returns the finalized copy.
func (t *Tracker) finalizeLocked(slot *speakerSlot, speakerID string) *Utterance {
	slot.epoch++
	if slot.timer != nil {
		slot.timer.Stop()
		slot.timer = nil
	}

	u := slot.active
	u.State = StateFinalized
	t.history.Add(*u)
	slot.active = nil

	t.log.Debug("utterance finalized",
		"speaker", speakerID, "utterance", u.ID, "chars", len(u.SourceText))
	finalized := *u
	return &finalized
}

// armTimerLocked (re)schedules the finalize timeout for the slot's current
// utterance. The captured epoch lets a late-firing timer detect that the
// slot has moved on.
func (t *Tracker) armTimerLocked(slot *speakerSlot, speakerID string) {
	slot.epoch++
	epoch := slot.epoch
	if slot.timer != nil {
		slot.timer.Stop()
	}
	slot.timer = time.AfterFunc(t.segmentTimeout, func() {
		t.expire(speakerID, epoch)
	})
}

// expire is the finalize-timer callback.
func (t *Tracker) expire(speakerID string, epoch uint64) {
	t.mu.Lock()
	slot, ok := t.slots[speakerID]
	if !ok || t.stopped || slot.epoch != epoch || slot.active == nil {
		t.mu.Unlock()
		return
	}
	finalized := t.finalizeLocked(slot, speakerID)
	t.mu.Unlock()

	t.signalFinalized(*finalized)
}

func (t *Tracker) signalUpdate(u Utterance) {
	if t.hooks.OnActiveUpdate != nil {
		t.hooks.OnActiveUpdate(u)
	}
}

func (t *Tracker) signalFinalized(u Utterance) {
	if t.hooks.OnFinalized != nil {
		t.hooks.OnFinalized(u)
	}
}
