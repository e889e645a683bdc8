// Package translate defines the translation backend abstraction used by the
// Glossia pipeline. Implementations live in subpackages (openai, anyllm) and
// are selected by name through the config registry.
package translate

import "context"

// Request describes one text-to-text translation.
type Request struct {
	// Text is the source text to translate. Must not be empty.
	Text string

	// SourceLang is the ISO 639-1 code of the source language, or "auto" to
	// let the backend detect it.
	SourceLang string

	// TargetLang is the ISO 639-1 code of the target language.
	TargetLang string
}

// Provider is a text-to-text translation backend.
//
// Translate performs exactly one round-trip; bounded execution (timeouts,
// retries, backoff) is the caller's responsibility via ctx and wrapping.
type Provider interface {
	// Translate converts req.Text from req.SourceLang to req.TargetLang and
	// returns the trimmed translated string.
	Translate(ctx context.Context, req Request) (string, error)

	// Probe performs a minimal authenticated request against the backend to
	// verify that the API key and endpoint are reachable. Used once before
	// committing to continuous operation.
	Probe(ctx context.Context) error

	// Name returns the backend identifier used in logs and metrics.
	Name() string
}
