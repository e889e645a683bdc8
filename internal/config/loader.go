package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidTranslatorNames lists the translator backends that ship with Glossia.
// Used by [Validate] to warn about unrecognised backend names.
var ValidTranslatorNames = []string{
	"openai", "anyllm",
	"anthropic", "gemini", "ollama", "deepseek",
	"mistral", "groq", "llamacpp", "llamafile",
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Translator backends — warn for unknown names.
	validateTranslatorName("providers.translator", cfg.Providers.Translator.Name)
	for i, entry := range cfg.Providers.Fallbacks {
		prefix := fmt.Sprintf("providers.fallbacks[%d]", i)
		if entry.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		validateTranslatorName(prefix, entry.Name)
	}

	if cfg.Providers.Translator.Name == "" {
		slog.Warn("providers.translator is not configured; translation cannot be started until one is set")
	}

	// Languages
	if cfg.Languages.Output == "" {
		errs = append(errs, errors.New("languages.output is required"))
	}
	if cfg.Languages.Input == cfg.Languages.Output && cfg.Languages.Output != "" {
		slog.Warn("languages.input equals languages.output; translations will be no-ops",
			"language", cfg.Languages.Output,
		)
	}

	// Display
	if cfg.Display.Mode != "" && !cfg.Display.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("display.mode %q is invalid; valid values: window, overlay", cfg.Display.Mode))
	}

	// Pipeline
	p := cfg.Pipeline
	if p.ContinuationRatio < 0 || p.ContinuationRatio > 1 {
		errs = append(errs, fmt.Errorf("pipeline.continuation_ratio %.2f is out of range [0, 1]", p.ContinuationRatio))
	}
	for _, check := range []struct {
		name string
		d    Duration
	}{
		{"pipeline.debounce_interval", p.DebounceInterval},
		{"pipeline.segment_timeout", p.SegmentTimeout},
		{"pipeline.throttle_interval", p.ThrottleInterval},
		{"pipeline.request_timeout", p.RequestTimeout},
		{"pipeline.retry_backoff", p.RetryBackoff},
		{"pipeline.probe_backoff", p.ProbeBackoff},
		{"pipeline.history_max_age", p.HistoryMaxAge},
	} {
		if check.d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", check.name))
		}
	}
	for _, check := range []struct {
		name string
		n    int
	}{
		{"pipeline.request_retries", p.RequestRetries},
		{"pipeline.max_failures", p.MaxFailures},
		{"pipeline.min_translate_length", p.MinTranslateLength},
		{"pipeline.probe_retries", p.ProbeRetries},
		{"pipeline.cache_capacity", p.CacheCapacity},
		{"pipeline.history_size", p.HistorySize},
	} {
		if check.n < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", check.name))
		}
	}
	if p.SegmentTimeout > 0 && p.ThrottleInterval > 0 && p.ThrottleInterval.Std() > p.SegmentTimeout.Std() {
		slog.Warn("pipeline.throttle_interval exceeds pipeline.segment_timeout; utterances may finalize before their first translation is dispatched",
			"throttle_interval", p.ThrottleInterval.Std(),
			"segment_timeout", p.SegmentTimeout.Std(),
		)
	}

	return errors.Join(errs...)
}

// validateTranslatorName logs a warning if name is non-empty and not found in
// [ValidTranslatorNames].
func validateTranslatorName(where, name string) {
	if name == "" {
		return
	}
	if slices.Contains(ValidTranslatorNames, name) {
		return
	}
	slog.Warn("unknown translator name — may be a typo or third-party backend",
		"where", where,
		"name", name,
		"known", ValidTranslatorNames,
	)
}
