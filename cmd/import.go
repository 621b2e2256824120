package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tempohq/tempo/internal/db"
	"github.com/tempohq/tempo/internal/importers"
	"github.com/tempohq/tempo/internal/progress"
	"github.com/tempohq/tempo/internal/task"
)

var importCmd = &cobra.Command{
	Use:   "import [glob]...",
	Short: "Import tasks from markdown checklists",
	Long: `Scans markdown files matching the given glob patterns (doublestar
syntax, e.g. "notes/**/*.md") and creates a task for every unchecked
checklist item. Checked items and titles already tracked are skipped,
so re-running an import is safe. A "due:YYYY-MM-DD" suffix on an item
sets the task's due date.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	imp := importers.New(task.NewSQLStore(database))

	// Total is only known once scanning starts.
	reporter := progress.NewReporter("Importing")
	started := false
	imp.SetProgressFunc(func(scanned, total int, currentFile string) {
		if !started {
			reporter.Start(total)
			started = true
		}
		reporter.Update(scanned, currentFile)
	})

	result, err := imp.Import(ctx, args)
	if started {
		reporter.Finish()
	}
	if err != nil {
		return err
	}

	fmt.Println("Import complete")
	fmt.Printf("  Files scanned: %d\n", result.FilesScanned)
	fmt.Printf("  Imported:      %d\n", result.Imported)
	fmt.Printf("  Skipped:       %d\n", result.Skipped)
	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "  Warning: %s\n", e)
	}
	return nil
}
