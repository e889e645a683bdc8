// Package config provides the configuration schema, loader, and translator
// registry for the Glossia caption translation relay.
package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// LogLevel controls log verbosity for the Glossia daemon.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// DisplayMode selects which presentation surface the translated stream is
// rendered on.
type DisplayMode string

const (
	// DisplayWindow renders into the separate companion window.
	DisplayWindow DisplayMode = "window"

	// DisplayOverlay renders into the in-page overlay.
	DisplayOverlay DisplayMode = "overlay"
)

// IsValid reports whether m is a recognised display mode.
func (m DisplayMode) IsValid() bool {
	return m == DisplayWindow || m == DisplayOverlay
}

// Duration is a [time.Duration] that unmarshals from YAML strings such as
// "750ms" or "3s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns d as a standard [time.Duration].
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the root configuration structure for Glossia.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Languages LanguagesConfig `yaml:"languages"`
	Display   DisplayConfig   `yaml:"display"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
}

// ServerConfig holds network and logging settings for the Glossia daemon.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP/WebSocket server listens on
	// (e.g., "127.0.0.1:8737"). The browser extension and presentation
	// surfaces connect here.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// ProvidersConfig declares the translation backend(s). Translator is the
// primary; Fallbacks are tried in order when the primary fails or its circuit
// breaker is open.
type ProvidersConfig struct {
	Translator ProviderEntry   `yaml:"translator"`
	Fallbacks  []ProviderEntry `yaml:"fallbacks"`
}

// ProviderEntry is the common configuration block shared by all translator
// backends. The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered translator implementation
	// (e.g., "openai", "anyllm").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the backend's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the backend's default API endpoint.
	// Leave empty to use the built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the backend (e.g., "gpt-4o-mini").
	Model string `yaml:"model"`

	// Options holds backend-specific configuration values not covered by the
	// standard fields above (e.g., "backend" for the anyllm translator).
	Options map[string]any `yaml:"options"`
}

// LanguagesConfig holds the default language pair used when a start request
// does not specify one.
type LanguagesConfig struct {
	// Input is the expected caption language (ISO 639-1 code, or "auto" to
	// let the translation backend detect it).
	Input string `yaml:"input"`

	// Output is the language the captions are translated into.
	Output string `yaml:"output"`
}

// DisplayConfig holds the default presentation surface selection.
type DisplayConfig struct {
	// Mode selects the surface the translated stream is rendered on.
	Mode DisplayMode `yaml:"mode"`
}

// PipelineConfig bundles every timing constant and bound of the segmentation
// and translation pipeline. Zero values are replaced with defaults by the
// components that consume them.
type PipelineConfig struct {
	// DebounceInterval bounds how often bursts of caption snapshots are
	// collapsed into processing ticks. Default: 300ms.
	DebounceInterval Duration `yaml:"debounce_interval"`

	// SegmentTimeout is the maximum silence before an active utterance is
	// auto-finalized. Default: 3s.
	SegmentTimeout Duration `yaml:"segment_timeout"`

	// ContinuationRatio is the normalized edit-distance threshold below which
	// a fragment is classified as an in-place correction of the current
	// utterance. Default: 0.3.
	ContinuationRatio float64 `yaml:"continuation_ratio"`

	// ThrottleInterval is the minimum time between two translation calls for
	// the same speaker. Default: 1200ms.
	ThrottleInterval Duration `yaml:"throttle_interval"`

	// RequestTimeout bounds a single translation round-trip. Default: 6s.
	RequestTimeout Duration `yaml:"request_timeout"`

	// RequestRetries is how often a failed translation round-trip is retried
	// before the request is reported as failed. Default: 2.
	RequestRetries int `yaml:"request_retries"`

	// RetryBackoff is the fixed delay between translation retries.
	// Default: 750ms.
	RetryBackoff Duration `yaml:"retry_backoff"`

	// MaxFailures is the number of consecutive translation failures for one
	// speaker's utterance before further attempts are suppressed and the
	// utterance is surfaced as unavailable. Default: 3.
	MaxFailures int `yaml:"max_failures"`

	// MinTranslateLength is the minimum fragment length (in runes) worth
	// sending to the translation backend; shorter fragments pass through
	// unmodified. Default: 3.
	MinTranslateLength int `yaml:"min_translate_length"`

	// ProbeRetries is how often the start-up connectivity probe is retried
	// before translation refuses to start. Default: 3.
	ProbeRetries int `yaml:"probe_retries"`

	// ProbeBackoff is the delay between connectivity probe retries.
	// Default: 2s.
	ProbeBackoff Duration `yaml:"probe_backoff"`

	// CacheCapacity bounds the translation cache; the oldest-inserted entry
	// is evicted first. Default: 256.
	CacheCapacity int `yaml:"cache_capacity"`

	// HistorySize bounds the finalized-utterance history kept per speaker.
	// Default: 20.
	HistorySize int `yaml:"history_size"`

	// HistoryMaxAge evicts finalized utterances older than this from the
	// display history. Default: 30m.
	HistoryMaxAge Duration `yaml:"history_max_age"`
}
