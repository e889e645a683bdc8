// Package render defines the presentation-side view model of the pipeline
// and the sinks that deliver it. A sink receives the complete current state
// on every call; redundant calls with an unchanged view are expected and
// must be harmless.
package render

import (
	"time"

	"github.com/tobfel/glossia/internal/tracker"
)

// UtteranceView is the display form of one utterance.
type UtteranceView struct {
	ID          string `json:"id"`
	SpeakerID   string `json:"speakerId"`
	SpeakerName string `json:"speakerName"`
	SourceText  string `json:"sourceText"`

	// Status is "pending", "succeeded", or "unavailable". Translated is only
	// set for "succeeded"; the UI picks its own sentinel for the others.
	Status     string `json:"status"`
	Translated string `json:"translated,omitempty"`

	StartedAt time.Time `json:"startedAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Final bool `json:"final"`
}

// View is the full presentation state pushed to the UI.
type View struct {
	// DisplayMode is the UI surface the view targets ("window" or "overlay").
	DisplayMode string `json:"displayMode"`

	GeneratedAt time.Time `json:"generatedAt"`

	// Finalized holds each speaker's closed utterances in chronological
	// order; Active holds the at most one still-growing utterance per
	// speaker.
	Finalized map[string][]UtteranceView `json:"finalized"`
	Active    map[string]UtteranceView   `json:"active"`
}

// Sink renders the current view. Implementations must be idempotent: callers
// may invoke Render arbitrarily often, including with unchanged views.
type Sink interface {
	Render(view View)
}

// SinkFunc adapts a plain function to the [Sink] interface.
type SinkFunc func(view View)

func (f SinkFunc) Render(view View) { f(view) }

// BuildView assembles a View from tracker snapshots.
func BuildView(active map[string]tracker.Utterance, finalized map[string][]tracker.Utterance, displayMode string) View {
	view := View{
		DisplayMode: displayMode,
		GeneratedAt: time.Now(),
		Finalized:   make(map[string][]UtteranceView, len(finalized)),
		Active:      make(map[string]UtteranceView, len(active)),
	}
	for speakerID, u := range active {
		view.Active[speakerID] = toView(u)
	}
	for speakerID, list := range finalized {
		views := make([]UtteranceView, len(list))
		for i, u := range list {
			views[i] = toView(u)
		}
		view.Finalized[speakerID] = views
	}
	return view
}

func toView(u tracker.Utterance) UtteranceView {
	v := UtteranceView{
		ID:          u.ID,
		SpeakerID:   u.SpeakerID,
		SpeakerName: u.SpeakerName,
		SourceText:  u.SourceText,
		Status:      string(u.Translation.Kind),
		StartedAt:   u.StartedAt,
		UpdatedAt:   u.LastUpdateAt,
		Final:       u.State == tracker.StateFinalized,
	}
	if u.Translation.Kind == tracker.StatusSucceeded {
		v.Translated = u.Translation.Text
	}
	return v
}
