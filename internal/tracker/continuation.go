package tracker

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// DefaultContinuationRatio is the normalized edit-distance threshold below
// which two disjoint-looking texts are still treated as the same utterance.
const DefaultContinuationRatio = 0.3

// Classifier decides whether a caption fragment continues an existing
// utterance or starts a new one. The heuristic is best effort and tuned for
// caption UIs that re-render a growing line in place; both thresholds are
// configurable because different captioning UIs violate its assumptions in
// different ways.
type Classifier struct {
	// SegmentTimeout is the silence window after which a fragment can never
	// be a continuation, regardless of textual similarity.
	SegmentTimeout time.Duration

	// MaxEditRatio is the normalized Levenshtein threshold for step three of
	// the test. Values outside (0, 1] fall back to [DefaultContinuationRatio].
	MaxEditRatio float64
}

// IsContinuation reports whether candidate extends the utterance whose
// current text is prev, given the time elapsed since prev last changed.
//
// The test runs in order: the silence gate, then mutual containment (caption
// UIs commonly re-send the whole growing line, and sometimes collapse
// trailing punctuation so the new text is a substring of the old), then a
// normalized edit distance for small in-place corrections.
func (c Classifier) IsContinuation(prev, candidate string, sinceUpdate time.Duration) bool {
	if c.SegmentTimeout > 0 && sinceUpdate > c.SegmentTimeout {
		return false
	}
	if prev == "" || candidate == "" {
		return false
	}
	if strings.Contains(candidate, prev) || strings.Contains(prev, candidate) {
		return true
	}
	return c.editRatio(prev, candidate) < c.ratio()
}

func (c Classifier) ratio() float64 {
	if c.MaxEditRatio <= 0 || c.MaxEditRatio > 1 {
		return DefaultContinuationRatio
	}
	return c.MaxEditRatio
}

// editRatio is the Levenshtein distance between a and b normalized by the
// longer rune length.
func (c Classifier) editRatio(a, b string) float64 {
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 0
	}
	return float64(matchr.Levenshtein(a, b)) / float64(longest)
}
