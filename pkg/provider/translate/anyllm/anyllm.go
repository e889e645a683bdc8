// Package anyllm provides a translation provider backed by
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, and
// more. It makes local inference backends usable for caption translation
// without any code changes.
//
// Usage:
//
//	p, err := anyllm.New("ollama", "llama3.2", anyllmlib.WithBaseURL("http://localhost:11434"))
//	p, err := anyllm.New("anthropic", "claude-3-5-haiku-latest", anyllmlib.WithAPIKey("sk-ant-..."))
package anyllm

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/tobfel/glossia/pkg/provider/translate"
)

// Compile-time assertion that Provider satisfies the translate interface.
var _ translate.Provider = (*Provider)(nil)

// Low temperature keeps translations literal and stable across the repeated
// calls made for a growing utterance.
const translationTemperature = 0.2

// Provider implements translate.Provider by wrapping any-llm-go.
type Provider struct {
	backend     anyllmlib.Provider
	backendName string
	model       string
}

// New creates a new Provider backed by the given backend name.
//
// backendName is one of: "openai", "anthropic", "gemini", "ollama",
// "deepseek", "mistral", "groq", "llamacpp", "llamafile".
//
// model is the specific model to use (e.g., "gpt-4o-mini", "llama3.2").
//
// opts are any-llm-go configuration options (e.g., anyllmlib.WithAPIKey,
// anyllmlib.WithBaseURL). Without an API key option, the backend falls back
// to its usual environment variable (OPENAI_API_KEY, ANTHROPIC_API_KEY, ...).
func New(backendName, model string, opts ...anyllmlib.Option) (*Provider, error) {
	if backendName == "" {
		return nil, fmt.Errorf("anyllm: backendName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("anyllm: model must not be empty")
	}

	backend, err := createBackend(backendName, opts...)
	if err != nil {
		return nil, fmt.Errorf("anyllm: create %q backend: %w", backendName, err)
	}

	return &Provider{backend: backend, backendName: backendName, model: model}, nil
}

// createBackend creates the underlying any-llm-go provider.
func createBackend(backendName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(backendName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported backend %q; supported: openai, anthropic, gemini, ollama, deepseek, mistral, groq, llamacpp, llamafile", backendName)
	}
}

// Translate implements translate.Provider with a single completion call.
func (p *Provider) Translate(ctx context.Context, req translate.Request) (string, error) {
	temperature := translationTemperature
	params := anyllmlib.CompletionParams{
		Model: p.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: systemPrompt(req.SourceLang, req.TargetLang)},
			{Role: anyllmlib.RoleUser, Content: req.Text},
		},
		Temperature: &temperature,
	}

	resp, err := p.backend.Completion(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anyllm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("anyllm: empty choices in response")
	}

	translated := strings.TrimSpace(resp.Choices[0].Message.ContentString())
	if translated == "" {
		return "", fmt.Errorf("anyllm: empty translation in response")
	}
	return translated, nil
}

// Probe implements translate.Provider. any-llm-go has no models-listing
// call, so the probe is a one-token completion.
func (p *Provider) Probe(ctx context.Context) error {
	maxTokens := 1
	params := anyllmlib.CompletionParams{
		Model: p.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleUser, Content: "ping"},
		},
		MaxTokens: &maxTokens,
	}
	if _, err := p.backend.Completion(ctx, params); err != nil {
		return fmt.Errorf("anyllm: probe: %w", err)
	}
	return nil
}

// Name implements translate.Provider.
func (p *Provider) Name() string {
	return "anyllm/" + p.backendName
}

func systemPrompt(source, target string) string {
	var b strings.Builder
	if source == "" || source == "auto" {
		fmt.Fprintf(&b, "Translate the following live caption into %s.", target)
	} else {
		fmt.Fprintf(&b, "Translate the following live caption from %s into %s.", source, target)
	}
	b.WriteString(" The text may be an unfinished sentence; translate it as-is" +
		" without completing it. Reply with only the translation, no quotes," +
		" no explanations.")
	return b.String()
}
