// Command glossia is the caption translation relay daemon. It accepts scraped
// closed captions over WebSocket, segments them into per-speaker utterances,
// translates them incrementally, and pushes the rendered view to the
// presentation surfaces.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/tobfel/glossia/internal/app"
	"github.com/tobfel/glossia/internal/config"
	"github.com/tobfel/glossia/internal/debuglog"
	"github.com/tobfel/glossia/internal/observe"
	"github.com/tobfel/glossia/pkg/provider/translate"
	anyllmtr "github.com/tobfel/glossia/pkg/provider/translate/anyllm"
	openaitr "github.com/tobfel/glossia/pkg/provider/translate/openai"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "glossia: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "glossia: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	// Every record is teed into the debug ring buffer served at /api/debuglog.
	logBuf := debuglog.NewBuffer(0)
	level := new(slog.LevelVar)
	level.Set(logLevel(cfg.Server.LogLevel))
	logger := slog.New(debuglog.NewHandler(
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
		logBuf,
	))
	slog.SetDefault(logger)

	slog.Info("glossia starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Translator registry ───────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinTranslators(reg)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "glossia",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(cfg, reg, logger, app.WithLogBuffer(logBuf))
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Config hot-reload ─────────────────────────────────────────────────────
	// Log level and display mode apply immediately; language and pipeline
	// changes take effect the next time translation is started.
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		diff := config.Diff(old, new)
		if diff.LogLevelChanged {
			level.Set(logLevel(diff.NewLogLevel))
			slog.Info("log level updated", "level", diff.NewLogLevel)
		}
		if diff.DisplayModeChanged {
			if err := application.SetDisplayMode(diff.NewDisplayMode); err != nil {
				slog.Debug("display mode change deferred", "err", err)
			} else {
				slog.Info("display mode updated", "mode", diff.NewDisplayMode)
			}
		}
		if diff.LanguagesChanged || diff.PipelineChanged {
			slog.Info("config updated, applies on next translation start")
		}
	})
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Translator wiring ─────────────────────────────────────────────────────────

// anyllmBackends lists the inference backends reachable through the any-llm
// translator. Each is also registered under its own name so config files can
// say `name: ollama` directly.
var anyllmBackends = []string{
	"anthropic", "gemini", "ollama", "deepseek",
	"mistral", "groq", "llamacpp", "llamafile",
}

// registerBuiltinTranslators wires all built-in translator factories into reg.
// Each factory receives a config.ProviderEntry and constructs the translator
// from the real implementation packages.
func registerBuiltinTranslators(reg *config.Registry) {
	// The native OpenAI client. Also the right choice for OpenAI-compatible
	// endpoints when base_url is set.
	reg.RegisterTranslator("openai", func(entry config.ProviderEntry) (translate.Provider, error) {
		var opts []openaitr.Option
		if entry.BaseURL != "" {
			opts = append(opts, openaitr.WithBaseURL(entry.BaseURL))
		}
		if entry.Model != "" {
			opts = append(opts, openaitr.WithModel(entry.Model))
		}
		return openaitr.New(entry.APIKey, opts...)
	})

	// The generic any-llm translator selects its backend from options.backend.
	reg.RegisterTranslator("anyllm", func(entry config.ProviderEntry) (translate.Provider, error) {
		backend := optString(entry.Options, "backend")
		if backend == "" {
			return nil, fmt.Errorf("anyllm translator requires options.backend")
		}
		return anyllmtr.New(backend, entry.Model, anyllmOptions(entry)...)
	})

	for _, backendName := range anyllmBackends {
		reg.RegisterTranslator(backendName, func(entry config.ProviderEntry) (translate.Provider, error) {
			return anyllmtr.New(backendName, entry.Model, anyllmOptions(entry)...)
		})
	}
}

// anyllmOptions converts the shared provider entry fields into any-llm options.
func anyllmOptions(entry config.ProviderEntry) []anyllmlib.Option {
	var opts []anyllmlib.Option
	if entry.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
	}
	if entry.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
	}
	return opts
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         Glossia — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printEntry("Translator", providerLabel(cfg.Providers.Translator))
	for i, fb := range cfg.Providers.Fallbacks {
		printEntry(fmt.Sprintf("Fallback %d", i+1), providerLabel(fb))
	}
	printEntry("Languages", cfg.Languages.Input+" -> "+cfg.Languages.Output)
	printEntry("Display", string(cfg.Display.Mode))
	if cfg.Server.ListenAddr != "" {
		printEntry("Listen addr", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func providerLabel(entry config.ProviderEntry) string {
	if entry.Name == "" {
		return "(not configured)"
	}
	if entry.Model != "" {
		return entry.Name + " / " + entry.Model
	}
	return entry.Name
}

func printEntry(kind, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-14s  : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func logLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
