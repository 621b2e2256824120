package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tempohq/tempo/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "tempo",
	Short: "AI assistant for tasks, focus sessions and planning",
	Long: `Tempo is a local-first productivity assistant. It keeps your tasks
and focus sessions in SQLite, builds a live context snapshot of how
you work, and lets an LLM act on your day through previewed, audited
tool calls.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.FileName, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
