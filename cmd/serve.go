package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tempohq/tempo/internal/db"
	mcpserver "github.com/tempohq/tempo/internal/mcp"
	"github.com/tempohq/tempo/internal/task"
	"github.com/tempohq/tempo/internal/tools"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long: `Starts a Model Context Protocol (MCP) server on stdio, exposing the task
and time-tracking tools to external AI agents. The server runs with the
permission level from mcp.permission (read by default), so mutating
tools are rejected unless the config raises it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		database, err := db.Open(cfg.DatabasePath())
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer database.Close()

		store := task.NewSQLStore(database)

		permission := tools.Permission(cfg.MCP.Permission)
		if permission == "" {
			permission = tools.PermissionRead
		}
		registry := tools.NewRegistry(permission)
		if err := tools.RegisterBuiltin(registry, store); err != nil {
			return fmt.Errorf("registering tools: %w", err)
		}

		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "tempo MCP server started on stdio (db=%s, permission=%s)\n", cfg.DatabasePath(), permission)

		srv := mcpserver.NewServer(registry)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
