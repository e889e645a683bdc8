// Package app wires all Glossia subsystems into a running daemon.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves the HTTP/WebSocket endpoints until the context is
// cancelled, and Shutdown tears everything down.
//
// For testing, inject mock implementations via functional options
// (WithTranslator, WithLogBuffer, etc.). When an option is not provided, New
// creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/tobfel/glossia/internal/caption/wsfeed"
	"github.com/tobfel/glossia/internal/config"
	"github.com/tobfel/glossia/internal/control"
	"github.com/tobfel/glossia/internal/debuglog"
	"github.com/tobfel/glossia/internal/health"
	"github.com/tobfel/glossia/internal/observe"
	"github.com/tobfel/glossia/internal/render"
	"github.com/tobfel/glossia/internal/resilience"
	"github.com/tobfel/glossia/internal/session"
	"github.com/tobfel/glossia/pkg/provider/translate"
)

// defaultListenAddr is used when server.listen_addr is not configured. The
// loopback bind keeps the relay reachable only from the local machine.
const defaultListenAddr = "127.0.0.1:8737"

// shutdownGrace bounds the HTTP server drain when the run context ends.
const shutdownGrace = 5 * time.Second

// App owns all subsystem lifetimes and serves the Glossia endpoints.
type App struct {
	cfg *config.Config
	log *slog.Logger

	// Subsystems, initialised in New and torn down in Shutdown.
	translator translate.Provider
	sessions   *session.Manager
	feed       *wsfeed.Feed
	push       *render.PushServer
	logs       *debuglog.Buffer
	metrics    *observe.Metrics

	srv *http.Server

	mu   sync.Mutex
	addr string

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithTranslator injects a translation provider instead of building one from
// the config and registry.
func WithTranslator(p translate.Provider) Option {
	return func(a *App) { a.translator = p }
}

// WithLogBuffer injects the debug log ring buffer shared with the logger.
func WithLogBuffer(b *debuglog.Buffer) Option {
	return func(a *App) { a.logs = b }
}

// WithMetrics injects a metrics instance instead of using the global default.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring all subsystems together. The registry supplies
// translator constructors for the backends named in cfg.Providers; it may be
// nil when a translator is injected via [WithTranslator].
func New(cfg *config.Config, reg *config.Registry, log *slog.Logger, opts ...Option) (*App, error) {
	a := &App{cfg: cfg, log: log}
	for _, o := range opts {
		o(a)
	}
	if a.log == nil {
		a.log = slog.Default()
	}
	if a.logs == nil {
		a.logs = debuglog.NewBuffer(0)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if err := a.initTranslator(reg); err != nil {
		return nil, fmt.Errorf("app: init translator: %w", err)
	}
	a.initPipeline()
	a.initHTTP()

	return a, nil
}

// initTranslator builds the translation provider chain from the config:
// primary backend, optional fallbacks behind circuit breakers, and the
// metrics wrapper.
func (a *App) initTranslator(reg *config.Registry) error {
	if a.translator == nil {
		if reg == nil {
			return errors.New("no translator injected and no registry given")
		}
		primary, err := reg.CreateTranslator(a.cfg.Providers.Translator)
		if err != nil {
			return fmt.Errorf("create translator %q: %w", a.cfg.Providers.Translator.Name, err)
		}

		if len(a.cfg.Providers.Fallbacks) > 0 {
			chain := resilience.NewTranslatorFallback(primary, resilience.FallbackConfig{})
			for _, entry := range a.cfg.Providers.Fallbacks {
				fb, err := reg.CreateTranslator(entry)
				if err != nil {
					return fmt.Errorf("create fallback translator %q: %w", entry.Name, err)
				}
				chain.AddFallback(fb)
				a.log.Info("registered fallback translator", "name", fb.Name())
			}
			a.translator = chain
		} else {
			a.translator = primary
		}
	}

	a.translator = observe.InstrumentTranslator(a.translator, a.metrics)
	return nil
}

// initPipeline creates the caption feed, the view push server, and the
// session manager that connects them.
func (a *App) initPipeline() {
	a.push = render.NewPushServer(a.log)
	a.feed = wsfeed.New(a.log)

	factory := func(inputLang, outputLang string, mode config.DisplayMode) (*session.Session, error) {
		return session.New(session.Params{
			InputLang:   inputLang,
			OutputLang:  outputLang,
			DisplayMode: mode,
			Pipeline:    a.cfg.Pipeline,
			Provider:    a.translator,
			Sink:        a.push,
			Log:         a.log,
			Metrics:     a.metrics,
		}), nil
	}
	a.sessions = session.NewManager(factory, a.log)
}

// initHTTP assembles the HTTP mux: control API, health endpoints, metrics,
// and the two WebSocket endpoints.
func (a *App) initHTTP() {
	mux := http.NewServeMux()

	ctl := control.New(a.sessions, a.logs, control.Defaults{
		InputLang:   a.cfg.Languages.Input,
		OutputLang:  a.cfg.Languages.Output,
		DisplayMode: a.cfg.Display.Mode,
	}, a.log)
	ctl.Register(mux)

	health.New(health.TranslatorChecker(a.translator)).Register(mux)

	mux.Handle("/ws/captions", a.feed)
	mux.Handle("/ws/view", a.push)
	mux.Handle("GET /metrics", promhttp.Handler())

	addr := a.cfg.Server.ListenAddr
	if addr == "" {
		addr = defaultListenAddr
	}
	a.srv = &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(a.metrics)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Run serves the HTTP endpoints and pumps caption snapshots into the session
// manager until ctx is cancelled. A clean shutdown returns nil.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.srv.Addr)
	if err != nil {
		return fmt.Errorf("app: listen on %s: %w", a.srv.Addr, err)
	}

	a.mu.Lock()
	a.addr = ln.Addr().String()
	a.mu.Unlock()

	a.log.Info("glossia running",
		"addr", a.addr,
		"translator", a.translator.Name(),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := a.feed.Run(ctx, a.sessions.HandleSnapshot)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		err := a.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-ctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return a.srv.Shutdown(drainCtx)
	})

	return g.Wait()
}

// Addr reports the bound listen address once Run has started, or the empty
// string before that. Useful with a ":0" listen address in tests.
func (a *App) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addr
}

// SetDisplayMode switches the presentation surface of the active session.
// Returns an error when no session is running.
func (a *App) SetDisplayMode(mode config.DisplayMode) error {
	return a.sessions.SetDisplayMode(mode)
}

// Shutdown stops the active session and disconnects all view subscribers.
// Safe to call more than once; only the first call has an effect.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		a.log.Info("shutting down")
		a.sessions.Shutdown()
		a.push.Close()
		err = a.srv.Shutdown(ctx)
	})
	return err
}
