package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/yndnr/boardmesh-go/internal/infra/buildinfo"
	"github.com/yndnr/boardmesh-go/internal/infra/confloader"
	"github.com/yndnr/boardmesh-go/internal/infra/shutdown"
	"github.com/yndnr/boardmesh-go/internal/server/config"
	"github.com/yndnr/boardmesh-go/internal/telemetry/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		host        = flag.String("host", "", "Listen host, overrides server.http.host")
		port        = flag.Int("port", 0, "Listen port, overrides server.http.port")
		historyDir  = flag.String("history-dir", "", "Board history directory, overrides storage.history_dir")
		logLevel    = flag.String("log-level", "", "Log level, overrides log.level")
	)
	flag.Parse()

	if *showVersion {
		i := buildinfo.Get()
		fmt.Printf("boardmesh-server %s (commit: %s, built: %s, %s)\n", i.Version, i.Commit, i.BuildTime, i.Platform)
		return nil
	}

	overrides := make(map[string]any)
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			overrides["server.http.host"] = *host
		case "port":
			overrides["server.http.port"] = *port
		case "history-dir":
			overrides["storage.history_dir"] = *historyDir
		case "log-level":
			overrides["log.level"] = *logLevel
		}
	})

	loader := confloader.NewLoader(
		confloader.WithConfigFile(*configFile),
		confloader.WithOverrides(overrides),
	)
	cfg, err := loadConfig(loader)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stdout,
	})
	slog.SetDefault(log)

	log.Info("starting boardmesh-server",
		"version", buildinfo.Version,
		"config", *configFile,
		"settings", config.Sanitize(cfg))

	srv, err := newServer(cfg, loader, log)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", cfg.Server.HTTP.Addr())
	if err != nil {
		srv.closeStorage()
		return fmt.Errorf("listen: %w", err)
	}

	sd := shutdown.NewHandler(cfg.Server.HTTP.ShutdownTimeout, log)
	srv.start(context.Background(), listener, sd)
	log.Info("server started", "addr", listener.Addr().String())

	if err := sd.Wait(context.Background()); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}

// loadConfig layers the file, BOARDMESH_ variables and the legacy
// variables over the defaults and verifies the result.
func loadConfig(loader *confloader.Loader) (*config.ServerConfig, error) {
	cfg := config.Default()
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
