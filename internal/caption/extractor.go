package caption

import (
	"strings"
	"sync"
)

// UnknownSpeaker is the attribution used when neither the fragment nor the
// snapshot names a speaker.
const UnknownSpeaker = "Unknown"

// seenPerSpeaker bounds how many recently processed raw strings are kept per
// speaker for deduplication.
const seenPerSpeaker = 32

// Extractor turns raw snapshots into normalized, deduplicated fragments.
//
// Normalization trims surrounding whitespace and collapses internal runs of
// whitespace to a single space. Fragments that are empty after normalization
// are dropped. Unattributed fragments fall back to the snapshot's active
// speaker, then to [UnknownSpeaker].
//
// Deduplication is per speaker and exact: a fragment whose normalized text
// matches one of the speaker's recently processed strings is dropped. A
// growing caption line ("hel", "hello", "hello there") never matches its
// earlier forms, so incremental updates always pass through.
type Extractor struct {
	mu   sync.Mutex
	seen map[string][]string
}

// NewExtractor returns an Extractor with empty deduplication state.
func NewExtractor() *Extractor {
	return &Extractor{seen: make(map[string][]string)}
}

// Extract returns the fresh, normalized fragments of snap, in page order.
func (e *Extractor) Extract(snap Snapshot) []Fragment {
	e.mu.Lock()
	defer e.mu.Unlock()

	var out []Fragment
	for _, frag := range snap.Fragments {
		text := NormalizeText(frag.Text)
		if text == "" {
			continue
		}
		speaker := strings.TrimSpace(frag.SpeakerName)
		if speaker == "" {
			speaker = strings.TrimSpace(snap.ActiveSpeaker)
		}
		if speaker == "" {
			speaker = UnknownSpeaker
		}
		if e.isSeen(speaker, text) {
			continue
		}
		e.markSeen(speaker, text)
		out = append(out, Fragment{SpeakerName: speaker, Text: text})
	}
	return out
}

// Reset discards all deduplication state. Used when a session is cleared so
// the next capture pass is processed from scratch.
func (e *Extractor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen = make(map[string][]string)
}

func (e *Extractor) isSeen(speaker, text string) bool {
	for _, s := range e.seen[speaker] {
		if s == text {
			return true
		}
	}
	return false
}

func (e *Extractor) markSeen(speaker, text string) {
	recent := append(e.seen[speaker], text)
	if len(recent) > seenPerSpeaker {
		recent = recent[len(recent)-seenPerSpeaker:]
	}
	e.seen[speaker] = recent
}

// NormalizeText trims surrounding whitespace and collapses internal
// whitespace runs to a single space.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
