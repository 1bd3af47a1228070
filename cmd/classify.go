package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/classifier"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/config"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/feature"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/pathmeta"
	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/progress"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [input-dir]",
	Short: "Classify extraction artifacts into feature records",
	Long: `Reads every extraction artifact under the input directory, assigns each
file path a bucket from the pattern registry, resolves its repo and program,
and writes the deduplicated records to the features file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClassify,
}

var reindexCmd = &cobra.Command{
	Use:   "reindex [features-file]",
	Short: "Replace the table of contents with the records in a features file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReindex,
}

var buildCmd = &cobra.Command{
	Use:   "build [input-dir]",
	Short: "Classify artifacts and rebuild the table of contents",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBuild,
}

func init() {
	for _, c := range []*cobra.Command{classifyCmd, buildCmd} {
		c.Flags().StringP("output", "o", "", "features file to write (default from config)")
		c.Flags().String("source-root", "", "checkout root used to hash files missing a hash")
		c.Flags().Bool("quiet", false, "suppress progress output")
	}
	classifyCmd.Flags().Bool("json", false, "print the classification summary as JSON")
	rootCmd.AddCommand(classifyCmd, reindexCmd, buildCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	res, err := classifyArtifacts(cmd, cfg, args)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		summary := *res
		summary.Records = nil
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	printClassifySummary(res)
	return nil
}

func runReindex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := cfg.FeaturesFile
	if len(args) > 0 {
		path = args[0]
	}
	records, err := feature.ReadFile(path)
	if err != nil {
		return err
	}
	return reindex(cmd.Context(), cfg, records)
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	res, err := classifyArtifacts(cmd, cfg, args)
	if err != nil {
		return err
	}
	printClassifySummary(res)
	return reindex(cmd.Context(), cfg, res.Records)
}

// classifyArtifacts discovers, classifies and writes records per the flags
// and config.
func classifyArtifacts(cmd *cobra.Command, cfg *config.Config, args []string) (*classifier.Result, error) {
	inputDir := cfg.InputDir
	if len(args) > 0 {
		inputDir = args[0]
	}
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = cfg.FeaturesFile
	}
	sourceRoot, _ := cmd.Flags().GetString("source-root")
	if sourceRoot == "" {
		sourceRoot = cfg.SourceRoot
	}
	quiet, _ := cmd.Flags().GetBool("quiet")

	reg, err := loadRegistry(cfg)
	if err != nil {
		return nil, err
	}

	artifacts, err := classifier.DiscoverArtifacts(classifier.DiscoverConfig{
		RootDir: inputDir,
		Include: cfg.Include,
		Exclude: cfg.Exclude,
	})
	if err != nil {
		return nil, err
	}
	if len(artifacts) == 0 {
		return nil, fmt.Errorf("no artifacts found under %s", inputDir)
	}
	slog.Info("classifying artifacts", "dir", inputDir, "count", len(artifacts), "rules", reg.Len())

	c := classifier.New(reg, pathmeta.NewResolver(cfg.RootMarker),
		classifier.WithHasher(classifier.ContentHasher{Root: sourceRoot}),
		classifier.WithReporter(progress.NewReporter("Classifying", quiet)),
	)
	res, err := c.ClassifyArtifacts(cmd.Context(), artifacts)
	if err != nil {
		return nil, err
	}

	if err := feature.WriteFile(output, res.Records); err != nil {
		return nil, err
	}
	slog.Info("features written", "path", output, "records", len(res.Records))
	return res, nil
}

func reindex(ctx context.Context, cfg *config.Config, records []feature.Record) error {
	store, err := openTOC(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Reindex(ctx, records)
	if err != nil {
		return fmt.Errorf("reindexing %s toc: %w", cfg.TOC.Backend, err)
	}
	fmt.Printf("Indexed %d of %d records into the %s table of contents.\n", n, len(records), cfg.TOC.Backend)
	return nil
}

func printClassifySummary(res *classifier.Result) {
	fmt.Printf("Artifacts:     %d\n", res.Artifacts)
	fmt.Printf("Entries:       %d\n", res.Entries)
	fmt.Printf("Records:       %d\n", len(res.Records))
	fmt.Printf("Unclassified:  %d\n", res.Unclassified)
	fmt.Printf("Duplicates:    %d\n", len(res.Duplicates))
	for _, s := range res.Skipped {
		fmt.Fprintf(os.Stderr, "  skipped %s: %s\n", s.Artifact, s.Reason)
	}
}
