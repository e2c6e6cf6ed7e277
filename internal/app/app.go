// Package app wires the application together: New builds every subsystem
// from configuration, Run serves until the context is cancelled, and
// Shutdown tears everything down in reverse-init order.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lastminutejob75/standardiste/internal/audit"
	auditpg "github.com/lastminutejob75/standardiste/internal/audit/postgres"
	"github.com/lastminutejob75/standardiste/internal/calendar"
	"github.com/lastminutejob75/standardiste/internal/calendar/memcal"
	"github.com/lastminutejob75/standardiste/internal/calendar/sqlitefallback"
	"github.com/lastminutejob75/standardiste/internal/clock"
	"github.com/lastminutejob75/standardiste/internal/config"
	"github.com/lastminutejob75/standardiste/internal/engine"
	"github.com/lastminutejob75/standardiste/internal/faq"
	"github.com/lastminutejob75/standardiste/internal/gateway"
	"github.com/lastminutejob75/standardiste/internal/health"
	"github.com/lastminutejob75/standardiste/internal/observe"
	"github.com/lastminutejob75/standardiste/internal/prompt"
	"github.com/lastminutejob75/standardiste/internal/session"
	sessionpg "github.com/lastminutejob75/standardiste/internal/session/postgres"
)

// sweepInterval is how often the in-memory session store evicts dead
// sessions. Irrelevant when postgres is configured.
const sweepInterval = time.Minute

// fallbackBacklogLimit is the unreconciled-booking count above which the
// readiness probe starts failing.
const fallbackBacklogLimit = 50

// App owns all subsystem lifetimes.
type App struct {
	cfg    *config.Config
	engine *engine.Engine
	server *http.Server

	memStore *session.MemStore // nil when postgres is configured

	// closers are called in reverse order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*deps)

// deps are the injectable collaborators; nil slots are built from config.
type deps struct {
	store    session.Store
	journal  session.Journal
	backend  calendar.Backend
	matcher  faq.Matcher
	sink     audit.Sink
	checkers []health.Checker
}

// WithSessionStore injects a session store instead of building one from config.
func WithSessionStore(s session.Store) Option {
	return func(d *deps) { d.store = s }
}

// WithCalendar injects a calendar backend instead of the built-in one.
func WithCalendar(b calendar.Backend) Option {
	return func(d *deps) { d.backend = b }
}

// WithFAQMatcher injects an FAQ matcher instead of loading from faq_dir.
func WithFAQMatcher(m faq.Matcher) Option {
	return func(d *deps) { d.matcher = m }
}

// WithAuditSink injects an audit sink instead of building one from config.
func WithAuditSink(s audit.Sink) Option {
	return func(d *deps) { d.sink = s }
}

// New builds the application from configuration. Initialisation is
// synchronous: storage connections, FAQ corpus loading, calendar failover
// wiring, engine and gateway construction.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	var d deps
	for _, o := range opts {
		o(&d)
	}

	// ── 1. Session store ─────────────────────────────────────────────────
	if d.store == nil {
		if dsn := cfg.Storage.PostgresDSN; dsn != "" {
			pg, err := sessionpg.NewStore(ctx, dsn)
			if err != nil {
				return nil, fmt.Errorf("app: init session store: %w", err)
			}
			d.store = pg
			d.journal = pg
			a.closers = append(a.closers, func() error { pg.Close(); return nil })
			d.checkers = append(d.checkers, health.Pinger("postgres", pg.Ping))

			if d.sink == nil {
				sink, err := auditpg.NewSink(ctx, pg.Pool())
				if err != nil {
					return nil, fmt.Errorf("app: init audit sink: %w", err)
				}
				async := audit.NewAsync(sink, 0)
				a.closers = append(a.closers, func() error { async.Close(); return nil })
				d.sink = async
			}
			slog.Info("session store ready", "backend", "postgres")
		} else {
			mem := session.NewMemStore(cfg.Engine.SessionTTL())
			d.store = mem
			a.memStore = mem
			slog.Info("session store ready", "backend", "memory")
		}
	}
	if d.sink == nil {
		d.sink = audit.NewMemSink(0)
	}

	// ── 2. Calendar ──────────────────────────────────────────────────────
	if d.backend == nil {
		d.backend = memcal.New(clock.System{})
	}
	var guardOpts []calendar.GuardedOption
	if path := cfg.Storage.SQLiteFallbackPath; path != "" {
		fb, err := sqlitefallback.Open(path)
		if err != nil {
			return nil, fmt.Errorf("app: init fallback store: %w", err)
		}
		a.closers = append(a.closers, fb.Close)
		guardOpts = append(guardOpts, calendar.WithFallback(fb))
		d.checkers = append(d.checkers,
			health.FallbackBacklog(fb, cfg.TenantIDs(), fallbackBacklogLimit))
		slog.Info("fallback booking store ready", "path", path)
	}
	guarded := calendar.NewGuarded(d.backend, guardOpts...)
	d.checkers = append(d.checkers, health.CalendarBreaker(guarded))

	// ── 3. FAQ corpus ────────────────────────────────────────────────────
	if d.matcher == nil {
		byTenant := map[string][]faq.Entry{}
		if dir := cfg.Storage.FAQDir; dir != "" {
			var err error
			byTenant, err = faq.LoadDir(dir)
			if err != nil {
				return nil, fmt.Errorf("app: load faq corpus: %w", err)
			}
			for tenant, entries := range byTenant {
				slog.Info("faq corpus loaded", "tenant_id", tenant, "entries", len(entries))
			}
		}
		d.matcher = faq.NewLexical(byTenant)
	}

	// ── 4. Prompt catalogs ───────────────────────────────────────────────
	catalogs := make(map[string]*prompt.Catalog, len(cfg.Tenants))
	for _, t := range cfg.Tenants {
		catalogs[t.ID] = prompt.NewCatalog(t.BusinessName)
	}

	// ── 5. Engine ────────────────────────────────────────────────────────
	a.engine = engine.New(engine.Deps{
		Store:    d.store,
		Journal:  d.journal,
		Calendar: guarded,
		FAQ:      d.matcher,
		Sink:     d.sink,
	}, engine.Options{
		SessionTTL:         cfg.Engine.SessionTTL(),
		FAQThreshold:       cfg.Engine.FAQThreshold,
		MaxMessageLength:   cfg.Engine.MaxMessageLength,
		MaxSlots:           cfg.Engine.MaxSlotsProposed,
		MaxTurns:           cfg.Engine.MaxTurnsAntiLoop,
		MaxContextFails:    cfg.Engine.MaxContextFails,
		ConfirmRetryMax:    cfg.Engine.ConfirmRetryMax,
		SkipContactConfirm: cfg.Engine.SkipContactConfirm,
	}, catalogs)

	// ── 6. Gateway ───────────────────────────────────────────────────────
	gw := gateway.New(a.engine, health.New(d.checkers...), observe.DefaultMetrics())
	a.server = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a, nil
}

// Engine exposes the conversation engine, mainly for tests.
func (a *App) Engine() *engine.Engine { return a.engine }

// Run serves HTTP until ctx is cancelled, then drains the listener.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.memStore != nil {
		a.memStore.StartSweeper(ctx, sweepInterval)
	}

	g.Go(func() error {
		slog.Info("gateway listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.server.Shutdown(drainCtx)
	})
	return g.Wait()
}

// Shutdown tears down the subsystems in reverse-init order. It respects the
// context deadline: remaining closers are skipped once ctx expires.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))
		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}
