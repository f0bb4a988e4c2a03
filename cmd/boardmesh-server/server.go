package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"sync/atomic"

	"github.com/yndnr/boardmesh-go/internal/core/service"
	"github.com/yndnr/boardmesh-go/internal/infra/buildinfo"
	"github.com/yndnr/boardmesh-go/internal/infra/confloader"
	"github.com/yndnr/boardmesh-go/internal/infra/discovery"
	"github.com/yndnr/boardmesh-go/internal/infra/shutdown"
	"github.com/yndnr/boardmesh-go/internal/server/config"
	"github.com/yndnr/boardmesh-go/internal/server/httpserver"
	"github.com/yndnr/boardmesh-go/internal/server/httpserver/handler"
	"github.com/yndnr/boardmesh-go/internal/storage"
	"github.com/yndnr/boardmesh-go/internal/storage/snapshot"
	"github.com/yndnr/boardmesh-go/internal/telemetry/logger"
	"github.com/yndnr/boardmesh-go/internal/telemetry/metric"
)

// server is one assembled boardmesh-server process.
type server struct {
	loader  *confloader.Loader
	current atomic.Pointer[config.ServerConfig]
	log     *slog.Logger
	metrics *metric.Registry

	backend   snapshot.Backend
	scheduler *storage.Scheduler
	registry  *service.Registry
	handler   *handler.Handler
	http      *httpserver.Server

	advertiser *discovery.Advertiser
	watcher    *confloader.Watcher
}

// newServer builds every component from cfg. Nothing listens yet.
func newServer(cfg *config.ServerConfig, loader *confloader.Loader, log *slog.Logger) (*server, error) {
	return assemble(cfg, loader, log, metric.Global())
}

func assemble(cfg *config.ServerConfig, loader *confloader.Loader, log *slog.Logger, metrics *metric.Registry) (*server, error) {
	s := &server{loader: loader, log: log, metrics: metrics}
	s.current.Store(cfg)

	backend, err := openBackend(cfg, log, metrics)
	if err != nil {
		return nil, err
	}
	s.backend = backend

	s.scheduler = storage.NewScheduler(storage.SchedulerConfig{
		Debounce:     cfg.Storage.SaveInterval,
		Ceiling:      cfg.Storage.MaxSaveDelay,
		TickInterval: cfg.Storage.FlushTick,
		Logger:       log,
	})
	s.registry = service.NewRegistry(backend, s.scheduler, service.Config{
		Limits:       cfg.Board.Limits(),
		MaxItemCount: cfg.Board.MaxItemCount,
		EmitCount:    cfg.Board.MaxEmitCount,
		EmitPeriod:   cfg.Board.MaxEmitCountPeriod,
		BlockedTools: cfg.Board.BlockedTools,
		Logger:       log,
		Metrics:      metrics,
	})
	if err := metrics.Registerer().Register(metric.NewBoardCollector(s.registry.MetricSource())); err != nil {
		backend.Close()
		return nil, fmt.Errorf("register board metrics: %w", err)
	}

	s.handler = handler.New(handler.Options{
		Registry: s.registry,
		Config:   s.current.Load,
		Metrics:  metrics,
		Logger:   log,
	})
	s.http = httpserver.New(cfg.Server.HTTP.Addr(), httpserver.NewRouter(s.handler, &httpserver.RouterConfig{
		Logger:      log,
		Metrics:     metrics,
		RateLimit:   cfg.Server.HTTP.RateLimit,
		RateBurst:   cfg.Server.HTTP.RateBurst,
		EnableAudit: true,
	}))
	return s, nil
}

func openBackend(cfg *config.ServerConfig, log *slog.Logger, metrics *metric.Registry) (snapshot.Backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendBadger:
		bcfg := snapshot.DefaultBadgerConfig(cfg.Storage.HistoryDir)
		bcfg.Limits = cfg.Board.Limits()
		bcfg.GCInterval = cfg.Storage.BadgerGCInterval
		bcfg.SyncWrites = cfg.Storage.SyncWrites
		bcfg.Logger = log
		b, err := snapshot.NewBadgerBackend(bcfg)
		if err != nil {
			return nil, fmt.Errorf("open badger: %w", err)
		}
		return b.RegisterMetrics(metrics.Registerer()), nil
	default:
		m, err := snapshot.NewManager(snapshot.Config{
			Dir:    cfg.Storage.HistoryDir,
			Limits: cfg.Board.Limits(),
			Logger: log,
		})
		if err != nil {
			return nil, fmt.Errorf("open snapshot dir: %w", err)
		}
		return m, nil
	}
}

// start serves on l and registers the shutdown steps with sd, in startup
// order. They run in reverse: unready, HTTP, sockets, mDNS, watcher,
// final flush, storage.
func (s *server) start(ctx context.Context, l net.Listener, sd *shutdown.Handler) {
	cfg := s.current.Load()

	sd.OnShutdown("storage", func(context.Context) error { return s.backend.Close() })

	schedCtx, stopScheduler := context.WithCancel(ctx)
	go s.scheduler.Run(schedCtx)
	sd.OnShutdown("flush", func(ctx context.Context) error {
		stopScheduler()
		s.registry.Close(ctx)
		return nil
	})

	sd.OnReload(s.reload)
	if path := s.loader.FilePath(); path != "" {
		if err := s.watch(path); err != nil {
			s.log.Warn("config file not watched, reload with SIGHUP", "path", path, "error", err)
		} else {
			sd.OnShutdown("watcher", func(context.Context) error { return s.watcher.Stop() })
		}
	}

	if cfg.Discovery.Enabled {
		port := cfg.Server.HTTP.Port
		if addr, ok := l.Addr().(*net.TCPAddr); ok {
			port = addr.Port
		}
		adv, err := discovery.Advertise(discovery.AdvertiseConfig{
			Instance: cfg.Discovery.Instance,
			Service:  cfg.Discovery.Service,
			Port:     port,
			Info:     []string{"BoardMesh", "version=" + buildinfo.Version},
			Logger:   s.log,
		})
		if err != nil {
			s.log.Warn("mDNS advertisement disabled", "error", err)
		} else {
			s.advertiser = adv
			s.log.Info("advertising on the local network", "instance", adv.Instance(), "service", cfg.Discovery.Service)
			sd.OnShutdown("mdns", func(context.Context) error { return adv.Shutdown() })
		}
	}

	sd.OnShutdown("sockets", func(context.Context) error {
		n := s.handler.CloseSockets()
		s.log.Info("sockets closed", "count", n)
		return nil
	})
	sd.OnShutdown("http", s.http.Shutdown)
	sd.OnShutdown("ready", func(context.Context) error {
		s.handler.SetReady(false)
		return nil
	})

	go func() {
		var err error
		if cfg.Server.HTTP.TLSCertFile != "" {
			err = s.http.ServeTLS(l, cfg.Server.HTTP.TLSCertFile, cfg.Server.HTTP.TLSKeyFile)
		} else {
			err = s.http.Serve(l)
		}
		if err != nil {
			s.log.Error("HTTP server error", "error", err)
			sd.Trigger("http server failed")
		}
	}()
}

func (s *server) watch(path string) error {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(s.log))
	if err != nil {
		return err
	}
	if err := w.Watch(path); err != nil {
		w.Stop()
		return err
	}
	w.OnChange(func(string) { s.reload() })
	w.StartAsync()
	s.watcher = w
	return nil
}

// reload reads every config source again and applies the settings that
// can change at runtime. An invalid file keeps the running config.
func (s *server) reload() {
	next := config.Default()
	if err := s.loader.Reload(next); err != nil {
		s.log.Error("config reload failed", "error", err)
		return
	}
	if err := config.Verify(next); err != nil {
		s.log.Error("reloaded config rejected", "error", err)
		return
	}

	prev := s.current.Swap(next)
	logger.SetLevel(next.Log.Level)
	s.registry.SetBlockedTools(next.Board.BlockedTools)

	if prev.Server.HTTP != next.Server.HTTP || prev.Storage != next.Storage || prev.Discovery != next.Discovery {
		s.log.Warn("server, storage and discovery changes apply after a restart")
	}
	s.log.Info("configuration reloaded",
		"log_level", next.Log.Level,
		"blocked_tools", next.Board.BlockedTools,
		"blocked_tools_changed", !slices.Equal(prev.Board.BlockedTools, next.Board.BlockedTools))
}

// closeStorage releases the backend of a server that never started.
func (s *server) closeStorage() {
	if err := s.backend.Close(); err != nil {
		s.log.Error("close storage", "error", err)
	}
}
