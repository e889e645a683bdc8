package anyllm

import (
	"strings"
	"testing"
)

func TestNew_Validation(t *testing.T) {
	if _, err := New("", "llama3.2"); err == nil {
		t.Error("expected error for empty backend name")
	}
	if _, err := New("ollama", ""); err == nil {
		t.Error("expected error for empty model")
	}
}

func TestNew_UnsupportedBackend(t *testing.T) {
	_, err := New("telepathy", "llama3.2")
	if err == nil {
		t.Fatal("expected error for unsupported backend")
	}
	if !strings.Contains(err.Error(), "unsupported backend") {
		t.Errorf("error does not name the problem: %v", err)
	}
}

func TestName_IncludesBackend(t *testing.T) {
	p, err := New("ollama", "llama3.2")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := p.Name(); got != "anyllm/ollama" {
		t.Errorf("Name = %q", got)
	}
}

func TestSystemPrompt(t *testing.T) {
	if got := systemPrompt("en", "fr"); !strings.Contains(got, "from en into fr") {
		t.Errorf("prompt does not name the language pair: %q", got)
	}
	if got := systemPrompt("", "fr"); !strings.Contains(got, "into fr") {
		t.Errorf("auto-detect prompt wrong: %q", got)
	}
}
