package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Inspect the file pattern registry",
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List classification rules in precedence order",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := loadRegistry(cfg)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "#\tBUCKET\tGLOBS\tDIRS")
		for i, r := range reg.Rules() {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, r.Bucket, strings.Join(r.Globs, ", "), strings.Join(r.Dirs, ", "))
		}
		return w.Flush()
	},
}

var patternsExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the active rules as YAML, to a file or stdout",
	Long:  `Writes the active rules as YAML. Edit the output and point patterns_file at it to customize classification.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := loadRegistry(cfg)
		if err != nil {
			return err
		}
		if len(args) == 0 {
			return reg.Export(os.Stdout)
		}

		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("creating %s: %w", args[0], err)
		}
		defer f.Close()
		if err := reg.Export(f); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Exported %d rules to %s\n", reg.Len(), args[0])
		return nil
	},
}

func init() {
	patternsCmd.AddCommand(patternsListCmd, patternsExportCmd)
	rootCmd.AddCommand(patternsCmd)
}
