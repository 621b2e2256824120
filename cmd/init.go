package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tempohq/tempo/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up tempo with an interactive wizard",
	Long:  `Runs an interactive wizard to pick a model provider, quality tier and working hours, and writes a .tempo.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
