package tracker

import (
	"sync"
	"time"
)

// History retains finalized utterances per speaker for display. It enforces
// both a maximum entry count per speaker and a maximum age; entries that
// exceed either limit are evicted on every [History.Add] call.
//
// All methods are safe for concurrent use.
type History struct {
	mu        sync.RWMutex
	bySpeaker map[string][]Utterance
	maxSize   int
	maxAge    time.Duration
}

// NewHistory creates a history that retains at most maxSize finalized
// utterances per speaker and evicts entries older than maxAge. A maxAge of
// zero disables age-based eviction.
func NewHistory(maxSize int, maxAge time.Duration) *History {
	return &History{
		bySpeaker: make(map[string][]Utterance),
		maxSize:   maxSize,
		maxAge:    maxAge,
	}
}

// Add appends a finalized utterance to its speaker's history and evicts
// entries that exceed the configured limits.
func (h *History) Add(u Utterance) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.bySpeaker[u.SpeakerID] = h.evict(append(h.bySpeaker[u.SpeakerID], u))
}

// SetTranslation applies a late translation result to a finalized utterance.
// It reports whether an utterance with the given ID was found.
func (h *History) SetTranslation(speakerID, utteranceID string, status TranslationStatus) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := h.bySpeaker[speakerID]
	for i := range entries {
		if entries[i].ID == utteranceID {
			entries[i].Translation = status
			return true
		}
	}
	return false
}

// BySpeaker returns a copy of all retained utterances keyed by speaker ID,
// each speaker's list in chronological order.
func (h *History) BySpeaker() map[string][]Utterance {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string][]Utterance, len(h.bySpeaker))
	for speaker, entries := range h.bySpeaker {
		cp := make([]Utterance, len(entries))
		copy(cp, entries)
		out[speaker] = cp
	}
	return out
}

// Clear drops all retained utterances.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bySpeaker = make(map[string][]Utterance)
}

// evict trims entries that are too old or exceed maxSize. Survivors are
// copied to a fresh backing array so evicted entries can be garbage
// collected. Must be called with h.mu held.
func (h *History) evict(entries []Utterance) []Utterance {
	start := 0
	if h.maxAge > 0 {
		cutoff := time.Now().Add(-h.maxAge)
		for start < len(entries) && entries[start].LastUpdateAt.Before(cutoff) {
			start++
		}
	}

	keep := entries[start:]
	if h.maxSize > 0 && len(keep) > h.maxSize {
		keep = keep[len(keep)-h.maxSize:]
	}

	if len(keep) != len(entries) {
		fresh := make([]Utterance, len(keep))
		copy(fresh, keep)
		return fresh
	}
	return entries
}
