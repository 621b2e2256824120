package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tempohq/tempo/internal/db"
	"github.com/tempohq/tempo/internal/task"
	"github.com/tempohq/tempo/internal/tools"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools available to the assistant",
	Long: `Prints every registered tool with the permission level it requires.
Mutating tools are marked with *; they preview their changes and may
ask for confirmation before running.`,
	RunE: runTools,
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	registry := tools.NewRegistry(tools.PermissionAdmin)
	if err := tools.RegisterBuiltin(registry, task.NewSQLStore(database)); err != nil {
		return fmt.Errorf("registering tools: %w", err)
	}

	defs := registry.List()
	width := 0
	for _, def := range defs {
		if len(def.Name) > width {
			width = len(def.Name)
		}
	}

	fmt.Printf("%d tools registered (agent permission: %s, mcp permission: %s)\n\n",
		len(defs), cfg.Agent.Permission, cfg.MCP.Permission)
	for _, def := range defs {
		marker := " "
		if def.Mutating {
			marker = "*"
		}
		fmt.Printf("  %s %-*s  %-5s  %s\n", marker, width, def.Name, def.Permission, def.Description)
	}
	fmt.Println()
	fmt.Println("  * mutating (previews changes, may require confirmation)")
	return nil
}
