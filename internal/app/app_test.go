package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/tobfel/glossia/internal/config"
	"github.com/tobfel/glossia/pkg/provider/translate"
	"github.com/tobfel/glossia/pkg/provider/translate/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		Server:    config.ServerConfig{ListenAddr: "127.0.0.1:0"},
		Languages: config.LanguagesConfig{Input: "en", Output: "de"},
		Display:   config.DisplayConfig{Mode: config.DisplayWindow},
	}
}

// startApp runs the app in the background and waits until it is serving.
// It returns the base URL and a stop function.
func startApp(t *testing.T, a *App) (string, func()) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for a.Addr() == "" {
		if time.Now().After(deadline) {
			cancel()
			t.Fatal("app did not start listening")
		}
		time.Sleep(5 * time.Millisecond)
	}

	stop := func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run returned error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("Run did not return after cancel")
		}
	}
	return "http://" + a.Addr(), stop
}

func TestNew_RequiresTranslatorOrRegistry(t *testing.T) {
	_, err := New(testConfig(), nil, testLogger())
	if err == nil {
		t.Fatal("expected error when neither translator nor registry is given")
	}
}

func TestNew_BuildsTranslatorFromRegistry(t *testing.T) {
	reg := config.NewRegistry()
	reg.RegisterTranslator("mock", func(entry config.ProviderEntry) (translate.Provider, error) {
		return &mock.Provider{ProviderName: "mock"}, nil
	})

	cfg := testConfig()
	cfg.Providers.Translator = config.ProviderEntry{Name: "mock"}

	a, err := New(cfg, reg, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.translator.Name() != "mock" {
		t.Errorf("translator name = %q, want %q", a.translator.Name(), "mock")
	}
}

func TestNew_BuildsFallbackChain(t *testing.T) {
	reg := config.NewRegistry()
	for _, name := range []string{"primary", "backup"} {
		reg.RegisterTranslator(name, func(entry config.ProviderEntry) (translate.Provider, error) {
			return &mock.Provider{ProviderName: entry.Name}, nil
		})
	}

	cfg := testConfig()
	cfg.Providers.Translator = config.ProviderEntry{Name: "primary"}
	cfg.Providers.Fallbacks = []config.ProviderEntry{{Name: "backup"}}

	a, err := New(cfg, reg, testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.translator.Name() != "primary,backup" {
		t.Errorf("translator name = %q, want %q", a.translator.Name(), "primary,backup")
	}
}

func TestNew_UnknownTranslator(t *testing.T) {
	cfg := testConfig()
	cfg.Providers.Translator = config.ProviderEntry{Name: "nope"}

	if _, err := New(cfg, config.NewRegistry(), testLogger()); err == nil {
		t.Fatal("expected error for unregistered translator")
	}
}

func TestApp_ServesHealthAndMetrics(t *testing.T) {
	a, err := New(testConfig(), nil, testLogger(), WithTranslator(&mock.Provider{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	base, stop := startApp(t, a)
	defer stop()

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(base + path)
			if err != nil {
				t.Fatalf("GET %s: %v", path, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Errorf("GET %s status = %d, want %d", path, resp.StatusCode, http.StatusOK)
			}
		})
	}
}

func TestApp_ReadyzFailsWhenTranslatorUnreachable(t *testing.T) {
	prov := &mock.Provider{ProbeErr: errors.New("connection refused")}
	a, err := New(testConfig(), nil, testLogger(), WithTranslator(prov))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	base, stop := startApp(t, a)
	defer stop()

	resp, err := http.Get(base + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusServiceUnavailable)
	}
}

func TestApp_ControlAPILifecycle(t *testing.T) {
	a, err := New(testConfig(), nil, testLogger(),
		WithTranslator(&mock.Provider{TranslateResponse: "hallo"}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	base, stop := startApp(t, a)
	defer stop()

	// Start a session using the configured language defaults.
	resp, err := http.Post(base+"/api/start", "application/json", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("POST /api/start: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("start status = %d, body %s", resp.StatusCode, body)
	}

	// Status should report the active session with the default languages.
	resp2, err := http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	defer resp2.Body.Close()

	var status struct {
		IsActive   bool   `json:"isActive"`
		InputLang  string `json:"inputLang"`
		OutputLang string `json:"outputLang"`
	}
	if err := json.NewDecoder(resp2.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.IsActive {
		t.Error("session not active after start")
	}
	if status.InputLang != "en" || status.OutputLang != "de" {
		t.Errorf("languages = %s->%s, want en->de", status.InputLang, status.OutputLang)
	}

	// Stop the session again.
	resp3, err := http.Post(base+"/api/stop", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /api/stop: %v", err)
	}
	defer resp3.Body.Close()
	if resp3.StatusCode != http.StatusOK {
		t.Errorf("stop status = %d, want %d", resp3.StatusCode, http.StatusOK)
	}
}

func TestApp_ShutdownIdempotent(t *testing.T) {
	a, err := New(testConfig(), nil, testLogger(), WithTranslator(&mock.Provider{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, stop := startApp(t, a)
	stop()

	for range 2 {
		if err := a.Shutdown(context.Background()); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
	}
}

func TestApp_DefaultListenAddr(t *testing.T) {
	cfg := testConfig()
	cfg.Server.ListenAddr = ""

	a, err := New(cfg, nil, testLogger(), WithTranslator(&mock.Provider{}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.srv.Addr != defaultListenAddr {
		t.Errorf("addr = %q, want %q", a.srv.Addr, defaultListenAddr)
	}
}
