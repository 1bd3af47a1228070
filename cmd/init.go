package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Trail-HEAD-Outfitters/SourceSherpa/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize sherpa configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure the LLM provider, extraction layout and storage backends, and writes a .sherpa.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
