package main

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"drishti-worker-go/internal/services"
)

var agentCmd = &cobra.Command{
	Use:       "agent <bottleneck|anomaly|summary|dispatch>",
	Short:     "Run a single agent without the HTTP API",
	ValidArgs: []string{"bottleneck", "anomaly", "summary", "dispatch"},
	Args:      cobra.ExactArgs(1),
	Long: `Run one agent as its own process. Agents of the same role share a
durable consumer, so several processes split the topic between them.

Examples:
  drishti-worker agent bottleneck
  drishti-worker agent dispatch --registry registry.yaml`,
	RunE: runAgent,
}

func init() {
	rootCmd.AddCommand(agentCmd)
}

func runAgent(cmd *cobra.Command, args []string) error {
	role, err := services.ParseRole(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, container, cleanup, err := bootstrap(ctx, "drishti-"+string(role)+"-agent")
	if err != nil {
		return err
	}
	defer cleanup()

	log.Info().
		Str("worker_id", cfg.WorkerID).
		Str("role", string(role)).
		Str("fabric", cfg.Fabric).
		Msg("Starting Drishti agent")

	if err := container.StartAgents(ctx, role); err != nil {
		container.Shutdown(context.Background())
		return err
	}

	waitForSignal()

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := container.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Agent did not stop cleanly")
		return err
	}

	log.Info().Msg("Shutdown complete")
	return nil
}
