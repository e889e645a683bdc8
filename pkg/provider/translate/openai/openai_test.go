package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tobfel/glossia/pkg/provider/translate"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty API key")
	}
}

func TestName(t *testing.T) {
	p, err := New("key")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := p.Name(); got != "openai" {
		t.Errorf("Name = %q", got)
	}
}

func TestSystemPrompt(t *testing.T) {
	got := systemPrompt("en", "de")
	if !strings.Contains(got, "from en into de") {
		t.Errorf("prompt does not name the language pair: %q", got)
	}

	got = systemPrompt("auto", "de")
	if strings.Contains(got, "auto") || !strings.Contains(got, "into de") {
		t.Errorf("auto-detect prompt wrong: %q", got)
	}
}

// startAPIServer fakes the chat-completion and models endpoints.
func startAPIServer(t *testing.T, content string, status int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			http.Error(w, "upstream error", status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		})
	})
	mux.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestTranslate(t *testing.T) {
	srv := startAPIServer(t, "hallo zusammen", http.StatusOK)
	p, err := New("key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.Translate(context.Background(), translate.Request{
		Text: "hello everyone", SourceLang: "en", TargetLang: "de",
	})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "hallo zusammen" {
		t.Errorf("Translate = %q", got)
	}
}

func TestTranslate_EmptyContent(t *testing.T) {
	srv := startAPIServer(t, "   ", http.StatusOK)
	p, _ := New("key", WithBaseURL(srv.URL))

	if _, err := p.Translate(context.Background(), translate.Request{
		Text: "hello", SourceLang: "en", TargetLang: "de",
	}); err == nil {
		t.Fatal("expected error for empty translation")
	}
}

func TestTranslate_UpstreamError(t *testing.T) {
	srv := startAPIServer(t, "", http.StatusInternalServerError)
	p, _ := New("key", WithBaseURL(srv.URL))

	if _, err := p.Translate(context.Background(), translate.Request{
		Text: "hello", SourceLang: "en", TargetLang: "de",
	}); err == nil {
		t.Fatal("expected error for upstream failure")
	}
}

func TestProbe(t *testing.T) {
	srv := startAPIServer(t, "ok", http.StatusOK)
	p, _ := New("key", WithBaseURL(srv.URL))

	if err := p.Probe(context.Background()); err != nil {
		t.Fatalf("Probe: %v", err)
	}
}
