// Package main is the entry point for the RAMSES RF metrics exporter. It
// wires the event source, dispatcher and HTTP server together and manages
// their lifecycle.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"ramses-exporter/internal/api"
	"ramses-exporter/internal/config"
	"ramses-exporter/internal/dispatch"
	"ramses-exporter/internal/metrics"
	"ramses-exporter/internal/namecache"
	filecache "ramses-exporter/internal/namecache/file"
	rediscache "ramses-exporter/internal/namecache/redis"
	"ramses-exporter/internal/resolve"
	"ramses-exporter/internal/source"
	kafkasource "ramses-exporter/internal/source/kafka"
	memorysource "ramses-exporter/internal/source/memory"
	mqttsource "ramses-exporter/internal/source/mqtt"
	"ramses-exporter/internal/topology"
	"ramses-exporter/internal/zones"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err, "path", *configPath)
		os.Exit(1)
	}

	logger := initLogger(&cfg.Logger)

	logger.Info("configuration loaded",
		"path", *configPath,
		"source_mode", cfg.Source.Mode,
		"cache_backend", cfg.Cache.Backend,
	)

	deps, cleanup, err := initDependencies(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Start event source in background
	go func() {
		if err := deps.source.Start(ctx, deps.dispatcher.Handle); err != nil && ctx.Err() == nil {
			logger.Error("event source error", "error", err)
			cancel()
		}
	}()

	// Start HTTP server
	go func() {
		if err := deps.server.Start(); err != nil {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	logger.Info("ramses-exporter started",
		"address", cfg.Server.Address(),
		"source_mode", cfg.Source.Mode,
		"version", version,
	)

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer shutdownCancel()

	if err := deps.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if err := deps.source.Close(); err != nil {
		logger.Error("source shutdown error", "error", err)
	}

	logger.Info("ramses-exporter stopped")
}

// dependencies holds all initialized service dependencies.
type dependencies struct {
	server     *api.Server
	source     source.Source
	dispatcher *dispatch.Dispatcher
}

// initDependencies creates and wires all service dependencies based on config.
// Returns the dependencies and a cleanup function.
func initDependencies(cfg *config.Config, logger *slog.Logger) (*dependencies, func(), error) {
	var (
		cacheStore   namecache.Store
		eventSource  source.Source
		cleanupFuncs []func()
	)

	switch cfg.Cache.Backend {
	case config.CacheBackendRedis:
		logger.Info("initializing redis name cache", "addr", cfg.Redis.RedisAddr())
		redisStore, err := rediscache.NewStore(&cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		cacheStore = redisStore
		cleanupFuncs = append(cleanupFuncs, func() { _ = redisStore.Close() })
	default:
		logger.Info("initializing file name cache", "path", cfg.Cache.Path)
		cacheStore = filecache.NewStore(cfg.Cache.Path)
	}

	cache := namecache.Load(cacheStore, logger)
	topo := topology.NewStatic(cfg.Topology.Devices, cfg.Topology.Zones)
	idx := zones.NewIndex()
	resolver := resolve.NewResolver(cache, topo, idx)

	registry := metrics.NewRegistry()
	dispatcher := dispatch.NewDispatcher(registry, resolver, cache, idx, version, logger)

	switch cfg.Source.Mode {
	case config.SourceModeMQTT:
		logger.Info("initializing MQTT source", "broker", cfg.MQTT.Broker, "topic", cfg.MQTT.Topic)
		mqttSource, err := mqttsource.NewSource(&cfg.MQTT, logger)
		if err != nil {
			return nil, nil, err
		}
		eventSource = mqttSource
	case config.SourceModeKafka:
		logger.Info("initializing Kafka source", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
		eventSource = kafkasource.NewSource(&cfg.Kafka, logger)
	default:
		logger.Info("initializing in-memory source")
		eventSource = memorysource.NewSource(1024)
	}

	server := api.NewServer(api.ServerDeps{
		Config:     &cfg.Server,
		Logger:     logger,
		Registry:   registry,
		Dispatcher: dispatcher,
	})

	cleanup := func() {
		for i := len(cleanupFuncs) - 1; i >= 0; i-- {
			cleanupFuncs[i]()
		}
	}

	return &dependencies{
		server:     server,
		source:     eventSource,
		dispatcher: dispatcher,
	}, cleanup, nil
}

// initLogger creates the application logger from config.
func initLogger(cfg *config.LoggerConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
