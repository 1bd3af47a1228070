package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/config"
	sherpamcp "github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for AI agent integration",
	Long: `Starts a Model Context Protocol server over stdio, exposing search_toc,
retrieve_snippets, search_snippets and ask_codebase to AI agents.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	deps, cleanup, err := openServices(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	// Log to stderr so it doesn't interfere with MCP protocol on stdout.
	fmt.Fprintf(os.Stderr, "sherpa MCP server starting (toc: %s, snippets: %s)\n", cfg.TOC.Backend, cfg.Snippets.Backend)

	sherpamcp.Version = Version
	return sherpamcp.NewServer(deps).Serve()
}

// openServices opens the TOC, snippet service and orchestrator for the
// long-running surfaces. The TOC is required; the snippet service and the
// orchestrator are dropped with a warning when they cannot be created.
func openServices(ctx context.Context, cfg *config.Config) (sherpamcp.Deps, func(), error) {
	var deps sherpamcp.Deps

	store, err := openTOC(ctx, cfg)
	if err != nil {
		return deps, nil, err
	}
	deps.TOC = store
	cleanup := func() { store.Close() }

	if svc, err := openSnippets(ctx, cfg); err != nil {
		slog.Warn("snippet retrieval disabled", "error", err)
	} else {
		deps.Snippets = svc
	}

	if orch, err := createOrchestrator(ctx, cfg, store); err != nil {
		slog.Warn("answer pipeline disabled", "error", err)
	} else {
		deps.Orchestrator = orch
	}
	return deps, cleanup, nil
}
