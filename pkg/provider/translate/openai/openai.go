// Package openai provides a translation provider backed by an OpenAI-style
// chat-completion API.
package openai

import (
	"context"
	"fmt"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/tobfel/glossia/pkg/provider/translate"
)

// Compile-time assertion that Provider satisfies the translate interface.
var _ translate.Provider = (*Provider)(nil)

const (
	defaultModel = "gpt-4o-mini"

	// Low temperature keeps translations literal and stable across the
	// repeated calls made for a growing utterance.
	translationTemperature = 0.2
)

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	model   string
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL. Any endpoint that
// speaks the chat-completion protocol works, including local ones.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithModel sets the model used for translation requests.
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// Provider implements translate.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	model  string
}

// New constructs a new OpenAI translation Provider.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}

	cfg := &config{model: defaultModel}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &Provider{client: oai.NewClient(reqOpts...), model: cfg.model}, nil
}

// Translate implements translate.Provider. It issues one chat completion
// carrying the text as the sole user message.
func (p *Provider) Translate(ctx context.Context, req translate.Request) (string, error) {
	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(systemPrompt(req.SourceLang, req.TargetLang)),
			oai.UserMessage(req.Text),
		},
		Temperature: param.NewOpt(translationTemperature),
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response")
	}

	translated := strings.TrimSpace(resp.Choices[0].Message.Content)
	if translated == "" {
		return "", fmt.Errorf("openai: empty translation in response")
	}
	return translated, nil
}

// Probe implements translate.Provider with a lightweight request against the
// models-listing endpoint.
func (p *Provider) Probe(ctx context.Context) error {
	if _, err := p.client.Models.List(ctx); err != nil {
		return fmt.Errorf("openai: models probe: %w", err)
	}
	return nil
}

// Name implements translate.Provider.
func (p *Provider) Name() string {
	return "openai"
}

// systemPrompt instructs the model to answer with nothing but the translated
// text. Captions are partial sentences, so the prompt forbids commentary and
// completion of unfinished phrases.
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
