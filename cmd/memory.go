package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/tempohq/tempo/internal/memory"
)

var (
	memoryLimit  int
	memoryJSON   bool
	memoryForget string
)

var memoryCmd = &cobra.Command{
	Use:   "memory [query]",
	Short: "Search what the assistant has learned about you",
	Long: `Searches learned behavior patterns and remembered requests with a
natural language query. Without a query it reports what is stored.
With --forget, drops every memory of the given type (peak_hours,
session_length, recurring_request) instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMemory,
}

func init() {
	memoryCmd.Flags().IntVar(&memoryLimit, "limit", 5, "maximum number of results")
	memoryCmd.Flags().BoolVar(&memoryJSON, "json", false, "output results as JSON")
	memoryCmd.Flags().StringVar(&memoryForget, "forget", "", "forget all memories of this type")
	rootCmd.AddCommand(memoryCmd)
}

func runMemory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	store, err := memory.NewStore(embedder)
	if err != nil {
		return fmt.Errorf("creating memory store: %w", err)
	}
	if err := store.Load(ctx, cfg.VectorDir()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading memories from %s: %w", cfg.VectorDir(), err)
	}

	if memoryForget != "" {
		if err := store.Forget(ctx, memoryForget); err != nil {
			return fmt.Errorf("forgetting %q: %w", memoryForget, err)
		}
		if err := store.Persist(ctx, cfg.VectorDir()); err != nil {
			return fmt.Errorf("saving memories: %w", err)
		}
		fmt.Printf("Forgot all %q memories, %d remain.\n", memoryForget, store.Count())
		return nil
	}

	if store.Count() == 0 {
		fmt.Println("No memories yet. They accumulate as you chat and track focus sessions.")
		return nil
	}

	if len(args) == 0 {
		fmt.Printf("%d memories stored in %s\n", store.Count(), cfg.VectorDir())
		fmt.Println(`Search them with "tempo memory <query>".`)
		return nil
	}

	patterns, err := store.Recall(ctx, args[0], memoryLimit)
	if err != nil {
		return fmt.Errorf("recall failed: %w", err)
	}
	if len(patterns) == 0 {
		fmt.Println("No matching memories.")
		return nil
	}

	if memoryJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(patterns)
	}

	fmt.Printf("Found %d memories:\n\n", len(patterns))
	for i, p := range patterns {
		fmt.Printf("  %d. [%.0f%%] %s\n", i+1, p.Confidence*100, p.Description)
		fmt.Printf("     Type: %s\n\n", p.Type)
	}
	return nil
}
