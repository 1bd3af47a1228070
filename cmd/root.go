package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/config"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/logging"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/telemetry"
)

var (
	cfgFile string
	verbose bool

	// shutdownTelemetry flushes spans after the command finishes.
	shutdownTelemetry telemetry.Shutdown
)

var rootCmd = &cobra.Command{
	Use:   "sherpa",
	Short: "Route developer questions to the right files in a multi-repo codebase",
	Long: `SourceSherpa classifies source files from extraction artifacts into
semantic buckets, indexes them in a searchable table of contents, and
answers natural-language questions by letting an LLM pick file patterns,
filter the table of contents and explain where to look.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupRuntime,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdownTelemetry == nil {
			return nil
		}
		return shutdownTelemetry(context.Background())
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultFile, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// setupRuntime loads .env, then installs logging and tracing from the
// config file. A broken config is reported by the commands that need it.
func setupRuntime(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	level, format := "info", "text"
	cfg, err := config.Load(cfgFile)
	if err == nil {
		level, format = cfg.Log.Level, cfg.Log.Format
	}
	if verbose {
		level = "debug"
	}
	// stdout is reserved for command output and the MCP protocol.
	logging.Setup(level, format, os.Stderr)

	if cfg == nil || cfg.Telemetry.Endpoint == "" {
		return nil
	}
	shutdown, err := telemetry.Setup(cmd.Context(), telemetry.Config{
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     Version,
	})
	if err != nil {
		slog.Warn("telemetry disabled", "error", err)
		return nil
	}
	shutdownTelemetry = shutdown
	return nil
}
