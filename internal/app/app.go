package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jackandcarter/Adventure-2.0-sub000/internal/config"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/content"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/instance"
	servernet "github.com/jackandcarter/Adventure-2.0-sub000/internal/net"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/net/router"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/net/ws"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/observability"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/session"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/sim"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/storage/memory"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/storage/sqlite"
	"github.com/jackandcarter/Adventure-2.0-sub000/internal/telemetry"
	"github.com/jackandcarter/Adventure-2.0-sub000/logging"
	loggingSinks "github.com/jackandcarter/Adventure-2.0-sub000/logging/sinks"
)

const (
	shutdownTimeout     = 10 * time.Second
	recentEventCapacity = 256
	recentEventsShown   = 20
)

type Config struct {
	Logger   telemetry.Logger
	Settings config.Config
}

// repository is what both storage backends provide.
type repository interface {
	instance.RunRepository
	instance.PartyRepository
	session.Store
	content.PartySaver
}

// Server is the assembled process. Build it with New, then Run it.
type Server struct {
	settings config.Config
	logger   telemetry.Logger
	counters *telemetry.Counters

	events    *logging.Router
	recent    *loggingSinks.MemorySink
	closers   []io.Closer
	loop      *sim.Loop
	sessions  *session.Manager
	instances *instance.Manager
	listener  *ws.Listener
	handler   http.Handler
}

// Run builds the server and serves until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	srv, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

// New wires every component without starting any goroutine except the
// logging router's workers.
func New(ctx context.Context, cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}
	settings := cfg.Settings
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Server{settings: settings, logger: logger, counters: telemetry.NewCounters()}
	metrics := telemetry.Fanout(s.counters, telemetry.NewOTelMetrics(nil, logger))

	events, err := s.buildEventRouter()
	if err != nil {
		s.close(ctx)
		return nil, err
	}
	s.events = events

	repo, err := s.openRepository(ctx)
	if err != nil {
		s.close(ctx)
		return nil, err
	}

	bundle, err := content.Load(settings.ContentPath)
	if err != nil {
		s.close(ctx)
		return nil, err
	}
	catalogs, err := bundle.Catalogs()
	if err != nil {
		s.close(ctx)
		return nil, fmt.Errorf("content: %w", err)
	}
	generator, err := content.NewStaticGenerator(bundle)
	if err != nil {
		s.close(ctx)
		return nil, fmt.Errorf("content: %w", err)
	}
	if err := bundle.SeedParties(ctx, repo); err != nil {
		s.close(ctx)
		return nil, err
	}

	simDeps := sim.Deps{Logger: logger, Metrics: metrics, Publisher: events}
	s.loop, err = sim.NewLoop(sim.LoopConfig{TickRate: settings.TickRate, Deps: simDeps})
	if err != nil {
		s.close(ctx)
		return nil, err
	}

	s.sessions, err = session.NewManager(session.Config{
		TTL:        settings.SessionTTL,
		TokenTTL:   settings.LoginTokenTTL,
		SigningKey: []byte(settings.SigningKey),
		Store:      repo,
		Logger:     logger,
		Metrics:    metrics,
		Publisher:  events,
	})
	if err != nil {
		s.close(ctx)
		return nil, err
	}

	s.instances, err = instance.NewManager(instance.Config{
		Loop:             s.loop,
		Generator:        generator,
		Runs:             repo,
		Parties:          repo,
		Catalogs:         catalogs,
		GraceWindow:      settings.GraceWindow,
		SprintMultiplier: settings.SprintMultiplier,
		QueueCapacity:    settings.QueueCapacity,
		Deps:             instance.Deps{Logger: logger, Metrics: metrics, Publisher: events},
	})
	if err != nil {
		s.close(ctx)
		return nil, err
	}

	messages := router.New(s.sessions, router.Config{Logger: logger, Metrics: metrics})
	s.instances.RegisterHandlers(messages)

	s.listener = ws.NewListener(s.sessions, messages, ws.Config{
		HeartbeatTimeout: settings.HeartbeatTimeout,
		WriteTimeout:     settings.WriteTimeout,
		Logger:           logger,
		Metrics:          metrics,
		Publisher:        events,
	})
	s.instances.SetConnections(s.listener)

	s.handler = servernet.NewHTTPHandler(servernet.HTTPHandlerConfig{
		Socket:        s.listener.Handle,
		Sessions:      s.sessions,
		Diagnostics:   s.diagnostics,
		DevLogin:      settings.DevLogin,
		Observability: observability.Config{EnablePprof: settings.EnablePprof},
		Logger:        logger,
	})
	return s, nil
}

// Handler exposes the HTTP surface.
func (s *Server) Handler() http.Handler { return s.handler }

// Run starts the loop, the session sweeper and the HTTP server, and blocks
// until ctx is cancelled or one of them fails.
func (s *Server) Run(ctx context.Context) error {
	defer s.close(context.WithoutCancel(ctx))

	httpServer := &http.Server{Addr: s.settings.ListenAddr, Handler: s.handler}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.loop.Start(gctx)
		<-gctx.Done()
		s.loop.Stop()
		return nil
	})
	g.Go(func() error {
		return s.sessions.Run(gctx, s.settings.SweepInterval)
	})
	g.Go(func() error {
		s.logger.Printf("server listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		s.instances.Shutdown(shutdownCtx)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Printf("http shutdown: %v", err)
		}
		return nil
	})
	return g.Wait()
}

func (s *Server) buildEventRouter() (*logging.Router, error) {
	settings := s.settings.Logging
	cfg := logging.DefaultConfig()
	cfg.EnabledSinks = settings.Sinks
	cfg.MinimumSeverity = logging.ParseSeverity(settings.Severity)
	cfg.Console.UseColor = settings.Color
	cfg.JSON.FilePath = settings.JSONPath

	var sinks []logging.NamedSink
	if cfg.HasSink("console") {
		sinks = append(sinks, logging.NamedSink{Name: "console", Sink: loggingSinks.NewConsoleSink(os.Stdout, cfg.Console)})
	}
	if cfg.HasSink("json") {
		file, err := os.OpenFile(cfg.JSON.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open event log %s: %w", cfg.JSON.FilePath, err)
		}
		s.closers = append(s.closers, file)
		sinks = append(sinks, logging.NamedSink{Name: "json", Sink: loggingSinks.NewJSON(file, cfg.JSON)})
	}
	if cfg.HasSink("memory") {
		s.recent = loggingSinks.NewMemorySink(recentEventCapacity)
		sinks = append(sinks, logging.NamedSink{Name: "memory", Sink: s.recent})
	}
	events, err := logging.NewRouter(logging.SystemClock{}, cfg, sinks)
	if err != nil {
		return nil, fmt.Errorf("failed to construct logging router: %w", err)
	}
	return events, nil
}

func (s *Server) openRepository(ctx context.Context) (repository, error) {
	switch s.settings.Storage.Driver {
	case config.StorageSQLite:
		store, err := sqlite.Open(ctx, s.settings.Storage.Path)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, store)
		if purged, err := store.PurgeExpiredSessions(ctx, time.Now()); err != nil {
			s.logger.Printf("purge expired sessions: %v", err)
		} else if purged > 0 {
			s.logger.Printf("purged %d expired sessions", purged)
		}
		return store, nil
	default:
		return memory.New(), nil
	}
}

func (s *Server) close(ctx context.Context) {
	if s.events != nil {
		if err := s.events.Close(ctx); err != nil {
			s.logger.Printf("failed to close logging router: %v", err)
		}
		s.events = nil
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			s.logger.Printf("close: %v", err)
		}
	}
	s.closers = nil
}

type diagnostics struct {
	Loop      sim.LoopStats       `json:"loop"`
	Sessions  session.Stats       `json:"sessions"`
	Sockets   int                 `json:"sockets"`
	Instances []instance.Summary  `json:"instances"`
	Events    logging.RouterStats `json:"events"`
	Counters  map[string]uint64   `json:"counters"`
	Recent    []logging.Event     `json:"recentEvents,omitempty"`
}

func (s *Server) diagnostics() any {
	return diagnostics{
		Loop:      s.loop.Stats(),
		Sessions:  s.sessions.Stats(),
		Sockets:   s.listener.Registry().Len(),
		Instances: s.instances.Summaries(),
		Events:    s.events.Stats(),
		Counters:  s.counters.Snapshot(),
		Recent:    s.recentEvents(),
	}
}

func (s *Server) recentEvents() []logging.Event {
	if s.recent == nil {
		return nil
	}
	events := s.recent.Events()
	if len(events) > recentEventsShown {
		events = events[len(events)-recentEventsShown:]
	}
	return events
}
