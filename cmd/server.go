package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/server"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the SourceSherpa HTTP API",
	Long: `Starts the HTTP API serving context search, snippet retrieval and the
answer pipeline. Services whose backend cannot be opened are left out and
their routes return 404.`,
	RunE: runServer,
}

func init() {
	serverCmd.Flags().String("addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := openServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := server.New(server.Config{
		Addr:        cfg.Server.Addr,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, server.Deps(deps))

	// Graceful shutdown.
	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nShutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown", "error", err)
		}
	}()

	fmt.Fprintf(os.Stderr, "sherpa server %s starting on %s\n", Version, cfg.Server.Addr)
	fmt.Fprintf(os.Stderr, "  TOC: %s\n", cfg.TOC.Backend)
	fmt.Fprintf(os.Stderr, "  Snippets: %s\n", cfg.Snippets.Backend)
	fmt.Fprintf(os.Stderr, "  Model: %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
