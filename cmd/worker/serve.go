package main

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"drishti-worker-go/internal/api"
	"drishti-worker-go/internal/services"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API, the live feed and every agent",
	Long: `Start the ingestion API and run all four agents in one process.

Examples:
  drishti-worker serve
  drishti-worker serve --port 9000
  MESSAGE_FABRIC=memory drishti-worker serve --registry registry.yaml`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, container, cleanup, err := bootstrap(ctx, "drishti-worker")
	if err != nil {
		return err
	}
	defer cleanup()
	if servePort != 0 {
		cfg.Port = servePort
	}

	log.Info().
		Str("worker_id", cfg.WorkerID).
		Str("version", cfg.Version).
		Str("environment", cfg.Environment).
		Str("fabric", cfg.Fabric).
		Str("store", cfg.StoreBackend).
		Int("port", cfg.Port).
		Msg("Starting Drishti worker")

	container.StartHub(ctx)
	if err := container.StartAgents(ctx, services.AllRoles...); err != nil {
		container.Shutdown(context.Background())
		return err
	}

	server := api.NewServer(cfg, container)
	server.Setup()

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	waitForSignal()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	cancel()
	if err := container.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Services did not stop cleanly")
		return err
	}

	log.Info().Msg("Shutdown complete")
	return nil
}
