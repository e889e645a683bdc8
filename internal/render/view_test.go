package render

import (
	"testing"
	"time"

	"github.com/tobfel/glossia/internal/tracker"
)

func TestBuildView(t *testing.T) {
	now := time.Now()
	active := map[string]tracker.Utterance{
		"alice": {
			ID: "u2", SpeakerID: "alice", SpeakerName: "Alice",
			SourceText: "still talking", Translation: tracker.Pending(),
			State: tracker.StateActive, StartedAt: now, LastUpdateAt: now,
		},
	}
	finalized := map[string][]tracker.Utterance{
		"alice": {{
			ID: "u1", SpeakerID: "alice", SpeakerName: "Alice",
			SourceText: "hello there", Translation: tracker.Succeeded("hallo du"),
			State: tracker.StateFinalized, StartedAt: now, LastUpdateAt: now,
		}},
		"bob": {{
			ID: "u3", SpeakerID: "bob", SpeakerName: "Bob",
			SourceText: "mumble", Translation: tracker.Unavailable(),
			State: tracker.StateFinalized, StartedAt: now, LastUpdateAt: now,
		}},
	}

	view := BuildView(active, finalized, "overlay")

	if view.DisplayMode != "overlay" {
		t.Errorf("DisplayMode = %q", view.DisplayMode)
	}
	if view.GeneratedAt.IsZero() {
		t.Error("GeneratedAt not set")
	}

	av, ok := view.Active["alice"]
	if !ok {
		t.Fatal("active utterance missing")
	}
	if av.Status != "pending" || av.Translated != "" || av.Final {
		t.Errorf("active view = %+v", av)
	}

	fv := view.Finalized["alice"][0]
	if fv.Status != "succeeded" || fv.Translated != "hallo du" || !fv.Final {
		t.Errorf("finalized view = %+v", fv)
	}

	uv := view.Finalized["bob"][0]
	if uv.Status != "unavailable" || uv.Translated != "" {
		t.Errorf("unavailable view = %+v", uv)
	}
}
