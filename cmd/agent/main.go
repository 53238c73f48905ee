// Package main is the entry point for the homelab telemetry agent.
// It loads configuration, wires the collectors, encoder, sender, and
// scheduler together, and runs the collection loop until the process
// supervisor signals it to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/msle237-lees/homelab-agent/internal/collector"
	"github.com/msle237-lees/homelab-agent/internal/config"
	"github.com/msle237-lees/homelab-agent/internal/encoder"
	"github.com/msle237-lees/homelab-agent/internal/scheduler"
	"github.com/msle237-lees/homelab-agent/internal/sender"
)

var (
	// version is set at build time via -ldflags.
	version = "dev"

	configPath  = flag.String("config", "", "Path to optional YAML configuration file")
	showVersion = flag.Bool("version", false, "Show version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("homelab-agent %s\n", version)
		os.Exit(0)
	}

	// Load configuration (env vars over optional file over defaults)
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)
	defer logger.Sync()

	// Validate configuration before anything else runs: a broken endpoint
	// or missing token must never reach the collection loop.
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	logger.Info("Starting homelab-agent",
		zap.String("version", version),
		zap.String("endpoint", cfg.Server.EndpointURL),
		zap.String("server_name", cfg.Server.ServerName),
		zap.Duration("interval", cfg.Collection.Interval.Duration))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle supervisor signals for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Info("Received signal, shutting down",
			zap.String("signal", sig.String()))
		cancel()
	}()

	runAgent(ctx, cfg, logger)
	logger.Info("Agent stopped")
}

// runAgent wires all components and runs the scheduler loop.
// It blocks until the context is cancelled.
func runAgent(ctx context.Context, cfg *config.Config, logger *zap.Logger) {
	registry := collector.NewRegistry(logger)
	registry.Register(collector.NewHostCollector(cfg.Server.ServerName, cfg.Server.AgentID))
	registry.Register(collector.NewCPUCollector())
	registry.Register(collector.NewMemoryCollector())
	registry.Register(collector.NewDiskCollector(logger))
	registry.Register(collector.NewNetworkCollector())
	registry.Register(collector.NewUptimeCollector())
	registry.Register(collector.NewProcessCollector(cfg.Collection.ProcessLimit))

	sampler := collector.NewSampler(registry, logger)
	snd := sender.New(cfg, logger)

	sched := scheduler.New(sampler, encoder.Encode, snd, cfg.Collection.Interval.Duration, logger)
	if err := sched.Run(ctx); err != nil {
		logger.Error("Scheduler exited with error", zap.Error(err))
	}
}

// initLogger creates a zap logger based on the configuration.
// It outputs to stdout for the supervisor journal and optionally tees a
// JSON log file.
func initLogger(cfg *config.Config) *zap.Logger {
	var level zapcore.Level
	switch cfg.Logging.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	consoleCore := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stdout),
		level,
	)

	cores := []zapcore.Core{consoleCore}

	if cfg.Logging.File != "" {
		file, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
		if err == nil {
			fileCore := zapcore.NewCore(
				zapcore.NewJSONEncoder(encoderConfig),
				zapcore.AddSync(file),
				level,
			)
			cores = append(cores, fileCore)
		}
	}

	return zap.New(zapcore.NewTee(cores...))
}
