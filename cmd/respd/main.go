// Package main provides the entry point for respd, an in-memory key-value
// server speaking the Redis RESP wire protocol.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/arvhen/respd/internal/backend"
	"github.com/arvhen/respd/internal/config"
	"github.com/arvhen/respd/internal/infra/confloader"
	"github.com/arvhen/respd/internal/infra/shutdown"
	"github.com/arvhen/respd/internal/server"
	"github.com/arvhen/respd/internal/telemetry/logger"
	"github.com/arvhen/respd/internal/telemetry/metric"
)

// Build information, set via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "respd",
		Usage:   "RESP-compatible in-memory key-value server",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				EnvVars: []string{"RESPD_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "listen",
				Aliases: []string{"l"},
				Usage:   "TCP listen address (overrides the config file)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error (overrides the config file)",
			},
		},
		Action: run,
	}
}

func run(c *cli.Context) error {
	cfg := config.Default()
	configFile := c.String("config")

	loader := confloader.New(confloader.WithConfigFile(configFile))
	if err := loader.Load(cfg); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.IsSet("listen") {
		cfg.Server.Addr = c.String("listen")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log.Info("starting respd", "version", version, "commit", commit, "config", configFile)

	metrics := metric.NewRegistry()
	store := backend.New()
	metrics.ObserveStoreSize(
		func() float64 { return float64(store.StringKeys()) },
		func() float64 { return float64(store.HashKeys()) },
	)

	srv := server.New(&server.Config{
		Addr:         cfg.Server.Addr,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		RateLimit:    cfg.Server.RateLimit,
	}, store, log, metrics)

	ctx := context.Background()
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	sd := shutdown.NewHandler(30 * time.Second)
	sd.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down server")
		return srv.Shutdown(ctx)
	})

	if cfg.Metrics.Enabled {
		metricsSrv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsMux(metrics)}
		go func() {
			log.Info("metrics listening", "addr", cfg.Metrics.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", "error", err)
			}
		}()
		sd.OnShutdown(func(ctx context.Context) error {
			log.Info("shutting down metrics server")
			return metricsSrv.Shutdown(ctx)
		})
	}

	if configFile != "" {
		watcher, err := confloader.NewWatcher(log)
		if err != nil {
			return fmt.Errorf("config watcher: %w", err)
		}
		if err := watcher.Watch(configFile); err != nil {
			return fmt.Errorf("watch config: %w", err)
		}
		watcher.OnChange(func(string) {
			reloaded := config.Default()
			if err := confloader.New(confloader.WithConfigFile(configFile)).Load(reloaded); err != nil {
				log.Warn("config reload failed", "error", err)
				return
			}
			if err := reloaded.Validate(); err != nil {
				log.Warn("reloaded config invalid", "error", err)
				return
			}
			if reloaded.Log.Level != log.Level() {
				log.SetLevel(reloaded.Log.Level)
				log.Info("log level updated", "level", reloaded.Log.Level)
			}
		})
		watcher.StartAsync()
		sd.OnShutdown(func(context.Context) error { return watcher.Stop() })
	}

	return sd.Wait()
}

func metricsMux(m *metric.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}
