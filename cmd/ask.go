package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/retrieval"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask where something lives in the codebase",
	Long: `Runs the full answer pipeline: the LLM proposes file patterns, turns them
into a table-of-contents filter, and answers from the matching files.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().String("model", "", "model id overriding llm.model")
	askCmd.Flags().Int("max-results", 0, "maximum records pulled from the table of contents")
	askCmd.Flags().Bool("debug", false, "include every prompt and raw response")
	askCmd.Flags().Bool("json", false, "output the full result as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	req := retrieval.Request{Question: args[0]}
	req.ModelID, _ = cmd.Flags().GetString("model")
	req.MaxResults, _ = cmd.Flags().GetInt("max-results")
	req.Debug, _ = cmd.Flags().GetBool("debug")
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

	orch, err := createOrchestrator(ctx, cfg, store)
	if err != nil {
		return err
	}

	resp, err := orch.Run(ctx, req)
	if err != nil {
		var se *retrieval.StageError
		if errors.As(err, &se) && se.Raw != "" {
			fmt.Fprintf(os.Stderr, "Raw LLM output:\n%s\n\n", se.Raw)
		}
		return err
	}

	if jsonOutput || req.Debug {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Println(resp.Answer)
	fmt.Printf("\n%d matching files", resp.MatchedCount)
	if len(resp.Preview) > 0 {
		fmt.Print(", for example:")
	}
	fmt.Println()
	for _, r := range resp.Preview {
		fmt.Printf("  %s  %s\n", r.Repo, r.Path)
	}
	return nil
}
