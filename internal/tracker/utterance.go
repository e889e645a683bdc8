// Package tracker owns the per-speaker utterance state machine: it merges
// caption fragments into in-progress utterances, decides when a fragment
// starts a new utterance, and finalizes utterances into a bounded history
// once a speaker goes quiet.
package tracker

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// State describes an utterance's lifecycle position.
type State string

const (
	// StateActive marks an utterance that is still accumulating text.
	StateActive State = "active"
	// StateFinalized marks a closed utterance. Finalized utterances are
	// immutable except for a late translation result landing on them.
	StateFinalized State = "finalized"
)

// StatusKind discriminates the translation status variants.
type StatusKind string

const (
	// StatusPending means no translation has arrived yet.
	StatusPending StatusKind = "pending"
	// StatusSucceeded means Text holds a translation of some revision of the
	// utterance's source text, possibly an earlier one.
	StatusSucceeded StatusKind = "succeeded"
	// StatusUnavailable means translation was given up for this utterance.
	StatusUnavailable StatusKind = "unavailable"
)

// TranslationStatus is the translation outcome attached to an utterance.
// Text is only meaningful when Kind is [StatusSucceeded].
type TranslationStatus struct {
	Kind StatusKind
	Text string
}

// Pending returns the initial translation status.
func Pending() TranslationStatus { return TranslationStatus{Kind: StatusPending} }

// Succeeded returns a status carrying a translated text.
func Succeeded(text string) TranslationStatus {
	return TranslationStatus{Kind: StatusSucceeded, Text: text}
}

// Unavailable returns the given-up status.
func Unavailable() TranslationStatus { return TranslationStatus{Kind: StatusUnavailable} }

// Utterance is one continuous stretch of speech from a single speaker.
type Utterance struct {
	// ID is unique per utterance and monotonically increasing per tracker.
	ID string

	// SpeakerID is the normalized key derived from the displayed name.
	SpeakerID string
	// SpeakerName is the displayed name as observed, preserved verbatim.
	SpeakerName string

	// SourceText is the latest known original-language text.
	SourceText string
	// Translation is the current translation status for SourceText or an
	// earlier revision of it.
	Translation TranslationStatus

	State State

	StartedAt    time.Time
	LastUpdateAt time.Time
}

// newUtteranceID builds a time-of-creation based identifier. The sequence
// component keeps IDs unique when several utterances start in the same
// millisecond.
func newUtteranceID(now time.Time, seq uint64) string {
	return fmt.Sprintf("%d-%d", now.UnixMilli(), seq)
}

// SpeakerKey normalizes a displayed speaker name into a stable speaker ID:
// lowercased, with runs of non-alphanumeric characters collapsed to a single
// dash. Two display names that differ only in case or punctuation map to the
// same speaker.
func SpeakerKey(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	key := strings.TrimSuffix(b.String(), "-")
	if key == "" {
		return "unknown"
	}
	return key
}
