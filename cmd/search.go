package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/toc"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Full-text search over the table of contents",
	Long:  `Ranks table-of-contents records by relevance to the query words, optionally restricted to a repo, program, bucket or language.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntP("k", "k", toc.DefaultK, "maximum number of results (1-50)")
	searchCmd.Flags().String("repo", "", "only records from this repo")
	searchCmd.Flags().String("program", "", "only records from this program")
	searchCmd.Flags().String("group", "", "only records in this bucket")
	searchCmd.Flags().String("lang", "", "only records in this language")
	searchCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	req := toc.SearchRequest{Query: args[0]}
	req.K, _ = cmd.Flags().GetInt("k")
	req.Repo, _ = cmd.Flags().GetString("repo")
	req.Program, _ = cmd.Flags().GetString("program")
	req.Group, _ = cmd.Flags().GetString("group")
	req.Lang, _ = cmd.Flags().GetString("lang")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openTOC(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	hits, err := store.Search(ctx, req.Query, req.K, req.Filters())
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if jsonOutput {
		if hits == nil {
			hits = []toc.Hit{}
		}
		data, err := json.MarshalIndent(toc.SearchResponse{Query: req.Query, Count: len(hits), Hits: hits}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	if len(hits) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tREPO\tBUCKET\tPATH")
	for _, h := range hits {
		fmt.Fprintf(w, "%.3f\t%s\t%s\t%s\n", h.Score, h.Repo, h.Bucket, h.Path)
	}
	return w.Flush()
}
