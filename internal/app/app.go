// Package app wires the synthesis server's subsystems into a running
// application.
//
// The App struct owns the full lifecycle: New loads every configured
// voice bundle and builds the front-end/back-end object graph for each,
// Run starts the websocket request server, and Shutdown tears everything
// down in order.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/synthline/ttscore/internal/config"
	"github.com/synthline/ttscore/internal/health"
	"github.com/synthline/ttscore/internal/observe"
	"github.com/synthline/ttscore/internal/server"
	"github.com/synthline/ttscore/internal/voicestore"
	"github.com/synthline/ttscore/pkg/voice"
)

// BundleLoader is the subset of [*voicestore.Store] App needs to load
// voice bundles at startup. Defined here (rather than used directly as
// *voicestore.Store) so tests can inject an in-memory fake instead of a
// live Postgres connection.
type BundleLoader interface {
	LoadBundle(ctx context.Context, name string) (*voice.Bundle, error)
}

// App owns every voice's lifetime and the request server that serves
// them.
type App struct {
	cfg     *config.Config
	store   BundleLoader
	metrics *observe.Metrics
	srv     *server.Server

	voices map[string]server.Synthesizer

	// closers are called in order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New, used to inject test doubles.
type Option func(*App)

// WithVoiceStore injects a voice store instead of connecting to
// cfg.Server.PostgresDSN.
func WithVoiceStore(s BundleLoader) Option {
	return func(a *App) { a.store = s }
}

// WithMetrics injects a metrics recorder instead of building one from
// scratch.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New builds an App by loading every voice named in cfg.Voices from the
// voice store and assembling its [voice.Voice], then wires the request
// server against the resulting registry.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{
		cfg:    cfg,
		voices: make(map[string]server.Synthesizer),
	}
	for _, o := range opts {
		o(a)
	}

	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init voice store: %w", err)
	}

	if err := a.loadVoices(ctx); err != nil {
		return nil, fmt.Errorf("app: load voices: %w", err)
	}

	a.srv = server.New(a, cfg.Server.MaxConcurrentSyntheses, a.metrics)

	return a, nil
}

// initStore connects to the configured Postgres DSN unless a store was
// already injected via [WithVoiceStore].
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	if a.cfg.Server.PostgresDSN == "" {
		if len(a.cfg.Voices) > 0 {
			return fmt.Errorf("server.postgres_dsn is required to load configured voices")
		}
		return nil
	}
	store, err := voicestore.NewStore(ctx, a.cfg.Server.PostgresDSN)
	if err != nil {
		return err
	}
	a.store = store
	a.closers = append(a.closers, func() error {
		store.Close()
		return nil
	})
	return nil
}

// loadVoices fetches and builds every voice entry in cfg.Voices. Voices
// load once at startup; requests never touch the store.
func (a *App) loadVoices(ctx context.Context) error {
	for _, entry := range a.cfg.Voices {
		bundleName := entry.BundleName
		if bundleName == "" {
			bundleName = entry.Name
		}

		bundle, err := a.store.LoadBundle(ctx, bundleName)
		if err != nil {
			return fmt.Errorf("load bundle %q for voice %q: %w", bundleName, entry.Name, err)
		}
		bundle.Name = entry.Name
		if entry.Language != "" {
			bundle.Language = entry.Language
		}
		if len(bundle.FallbackBackends) == 0 && len(entry.FallbackBackends) > 0 {
			bundle.FallbackBackends = convertBackends(entry.FallbackBackends)
		}

		v, err := voicestore.BuildVoice(ctx, bundle, a.metrics)
		if err != nil {
			return fmt.Errorf("build voice %q: %w", entry.Name, err)
		}

		a.voices[entry.Name] = v
		slog.Info("loaded voice", "name", entry.Name, "backend", v.Backend, "language", v.Language)
	}
	return nil
}

func convertBackends(in []config.BackendKind) []voice.Backend {
	out := make([]voice.Backend, len(in))
	for i, b := range in {
		out[i] = voice.Backend(b)
	}
	return out
}

// Voice implements [server.Registry]: it satisfies every synth request
// against the in-memory voice registry built by [New], never touching
// the store again after startup.
func (a *App) Voice(name string) (server.Synthesizer, bool) {
	v, ok := a.voices[name]
	return v, ok
}

// Names implements [server.Registry]: every loaded voice name, in the
// order the voices were loaded (their order in cfg.Voices).
func (a *App) Names() []string {
	names := make([]string, 0, len(a.voices))
	for _, entry := range a.cfg.Voices {
		if _, ok := a.voices[entry.Name]; ok {
			names = append(names, entry.Name)
		}
	}
	return names
}

// Run starts the websocket request server and blocks until ctx is
// cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	slog.Info("app running", "voices", len(a.voices), "listen_addr", a.cfg.Server.ListenAddr)
	return a.srv.ListenAndServe(ctx, a.cfg.Server.ListenAddr, a.healthHandler())
}

// healthHandler builds the probe handler: readiness requires at least one
// loaded voice, plus a reachable voice store when one is connected.
func (a *App) healthHandler() *health.Handler {
	checkers := []health.Checker{
		{Name: "voices", Check: func(context.Context) error {
			if len(a.voices) == 0 {
				return fmt.Errorf("no voices loaded")
			}
			return nil
		}},
	}
	if p, ok := a.store.(interface{ Ping(context.Context) error }); ok {
		checkers = append(checkers, health.Checker{Name: "voice_store", Check: p.Ping})
	}
	return health.New(checkers...)
}

// Shutdown runs every closer in the order it was registered. It respects
// the context deadline: if ctx expires before all closers finish,
// remaining closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))
		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}
