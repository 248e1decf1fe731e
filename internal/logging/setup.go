package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"drishti-worker-go/internal/config"
)

// Setup configures the global zerolog logger from cfg. Console output is used
// outside production; when Logdy is enabled every line is tee'd into its UI.
func Setup(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stderr
	if cfg.Environment != "production" {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	log.Logger = log.Output(out)

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Invalid log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogdyEnabled {
		w, _, err := StartLogdy(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("Logdy UI unavailable")
			return
		}
		log.Logger = log.Output(zerolog.MultiLevelWriter(out, w))
	}
}
