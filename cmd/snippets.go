package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/config"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/vectordb"
)

var snippetsCmd = &cobra.Command{
	Use:   "snippets",
	Short: "Manage and query the code snippet index",
}

var snippetsLoadCmd = &cobra.Command{
	Use:   "load [export.json...]",
	Short: "Chunk snippet exports and add them to the local vector store",
	Long: `Reads AST extractor exports, splits each source file into overlapping line
windows, embeds them and persists the local chromem store. Qdrant
collections are loaded by the extraction pipeline and need no load step.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSnippetsLoad,
}

var snippetsSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Semantic search over code snippets",
	Args:  cobra.ExactArgs(1),
	RunE:  runSnippetsSearch,
}

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [id...]",
	Short: "Print full snippet payloads by id",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		svc, err := openSnippets(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		payloads, err := svc.Fetch(cmd.Context(), args)
		if err != nil {
			return err
		}
		return printJSON(payloads)
	},
}

func init() {
	snippetsLoadCmd.Flags().Int("max-lines", vectordb.DefaultChunkOptions.MaxLines, "lines per snippet")
	snippetsLoadCmd.Flags().Int("stride", vectordb.DefaultChunkOptions.Stride, "lines between snippet starts")
	snippetsSearchCmd.Flags().Int("limit", 10, "maximum number of results")
	snippetsSearchCmd.Flags().String("repo", "", "only snippets from this repo")
	snippetsSearchCmd.Flags().String("lang", "", "only snippets in this language")
	snippetsSearchCmd.Flags().String("group", "", "only snippets in this bucket")

	snippetsCmd.AddCommand(snippetsLoadCmd, snippetsSearchCmd)
	rootCmd.AddCommand(snippetsCmd, retrieveCmd)
}

func runSnippetsLoad(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Snippets.Backend != config.SnippetsChromem {
		return fmt.Errorf("snippets load writes the local chromem store; snippets.backend is %q", cfg.Snippets.Backend)
	}

	opts := vectordb.ChunkOptions{}
	opts.MaxLines, _ = cmd.Flags().GetInt("max-lines")
	opts.Stride, _ = cmd.Flags().GetInt("stride")

	embedder := createEmbedderFromConfig(cfg)
	if embedder == nil {
		return fmt.Errorf("loading snippets needs embeddings: set %s or embedding.base_url", config.APIKeyEnvVar(config.ProviderOpenAI))
	}
	store, err := openChromem(ctx, cfg, embedder)
	if err != nil {
		return err
	}

	before := store.Count()
	for _, path := range args {
		docs, err := vectordb.LoadExport(path, opts)
		if err != nil {
			return err
		}
		if err := store.AddDocuments(ctx, docs); err != nil {
			return fmt.Errorf("indexing %s: %w", path, err)
		}
		fmt.Fprintf(os.Stderr, "  %s: %d snippets\n", filepath.Base(path), len(docs))
	}

	if err := os.MkdirAll(cfg.Snippets.Dir, 0o755); err != nil {
		return fmt.Errorf("creating snippet directory: %w", err)
	}
	if err := store.Persist(ctx, cfg.Snippets.Dir); err != nil {
		return fmt.Errorf("persisting snippet store: %w", err)
	}
	fmt.Printf("Snippet store now holds %d documents (%d new) in %s\n", store.Count(), store.Count()-before, cfg.Snippets.Dir)
	return nil
}

func runSnippetsSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := openSnippets(ctx, cfg)
	if err != nil {
		return err
	}

	limit, _ := cmd.Flags().GetInt("limit")
	filter := &vectordb.SearchFilter{}
	filter.Repo, _ = cmd.Flags().GetString("repo")
	filter.Lang, _ = cmd.Flags().GetString("lang")
	filter.Group, _ = cmd.Flags().GetString("group")
	if *filter == (vectordb.SearchFilter{}) {
		filter = nil
	}

	payloads, err := svc.Search(ctx, args[0], limit, filter)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(payloads) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	for i, p := range payloads {
		fmt.Printf("%d. [%v] %v %v\n", i+1, p["id"], p["repo"], p["path"])
		if code, ok := p["code"].(string); ok {
			fmt.Println(indent(firstLines(code, 6), "     "))
		}
	}
	return nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func firstLines(s string, n int) string {
	lines := strings.SplitN(s, "\n", n+1)
	if len(lines) > n {
		lines = append(lines[:n], "...")
	}
	return strings.Join(lines, "\n")
}

func indent(s, prefix string) string {
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}
