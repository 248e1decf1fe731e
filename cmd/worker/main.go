package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"drishti-worker-go/internal/config"
	"drishti-worker-go/internal/logging"
	"drishti-worker-go/internal/services"
	"drishti-worker-go/internal/telemetry"
)

// CLI flags
var (
	registryFile string
	logLevel     string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "drishti-worker",
	Short: "Drishti - crowd safety event pipeline",
	Long: `Drishti ingests camera video, runs the bottleneck and anomaly detection
agents on selected frames, summarizes alerts and dispatches field units.

Run without a subcommand to start the API together with every agent.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&registryFile, "registry", "", "Registry YAML with cameras, units and action rules (overrides REGISTRY_FILE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")
}

// bootstrap loads configuration, logging, tracing and the service container
// shared by every subcommand. The returned cleanup flushes tracing.
func bootstrap(ctx context.Context, service string) (*config.Config, *services.ServiceContainer, func(), error) {
	cfg := config.Load()
	if registryFile != "" {
		cfg.RegistryFile = registryFile
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logging.Setup(cfg)

	shutdownTracing, err := telemetry.Init(ctx, cfg, service)
	if err != nil {
		log.Warn().Err(err).Msg("Tracing disabled")
		shutdownTracing = func(context.Context) error { return nil }
	}
	cleanup := func() {
		tctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			log.Warn().Err(err).Msg("Failed to flush traces")
		}
	}

	reg, err := config.LoadRegistry(cfg.RegistryFile)
	if err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("failed to load registry: %w", err)
	}

	container, err := services.NewServiceContainer(ctx, cfg, reg)
	if err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("failed to create services: %w", err)
	}

	return cfg, container, cleanup, nil
}

// waitForSignal blocks until SIGINT or SIGTERM
func waitForSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutdown signal received")
}
