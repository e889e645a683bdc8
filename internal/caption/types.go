// Package caption defines the capture-side types of the Glossia pipeline:
// raw caption snapshots, the source abstraction that delivers them, the
// extractor that normalizes and deduplicates them, and the debouncer that
// bounds the processing rate.
package caption

import "time"

// Fragment is one raw caption-text observation for a single speaker,
// extracted from the host page at a single tick.
type Fragment struct {
	// SpeakerName is the display label shown next to the caption line.
	// May be empty when the page does not attribute the line.
	SpeakerName string

	// Text is the caption text as observed, before normalization.
	Text string
}

// Snapshot is everything the capture layer observed in one pass over the
// host page's caption region.
type Snapshot struct {
	// Fragments are the currently visible caption lines, in page order.
	Fragments []Fragment

	// ActiveSpeaker is the name shown in the page's active-speaker element,
	// used as a fallback attribution for unattributed fragments. May be empty.
	ActiveSpeaker string

	// CapturedAt is when the capture layer took the snapshot.
	CapturedAt time.Time
}
