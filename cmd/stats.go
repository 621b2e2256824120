package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tempohq/tempo/internal/chat"
	"github.com/tempohq/tempo/internal/config"
	"github.com/tempohq/tempo/internal/db"
	"github.com/tempohq/tempo/internal/llm"
	"github.com/tempohq/tempo/internal/task"
)

var statsDays int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show productivity and assistant spend statistics",
	Long:  `Prints task and focus statistics for the recent period, plus what the assistant's LLM usage has cost so far.`,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsDays, "days", 7, "reporting window in days")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
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

	tasks := task.NewSQLStore(database)
	chats := chat.NewStore(database)

	since := time.Now().UTC().AddDate(0, 0, -statsDays)
	stats, err := tasks.Stats(ctx, since)
	if err != nil {
		return fmt.Errorf("computing stats: %w", err)
	}
	active, _ := tasks.ActiveSession(ctx)
	sessions, _ := chats.CountSessions(ctx)

	fmt.Printf("Last %d days\n", statsDays)
	fmt.Println("===========")
	fmt.Printf("  Open tasks:       %d\n", stats.OpenTasks)
	fmt.Printf("  Completed:        %d (%d today)\n", stats.CompletedTasks, stats.CompletedToday)
	fmt.Printf("  Focus time:       %.0f min\n", stats.FocusMinutes)
	fmt.Printf("  Break time:       %.0f min\n", stats.BreakMinutes)
	fmt.Printf("  Focus efficiency: %.0f%%\n", stats.FocusEfficiency()*100)
	fmt.Printf("  Streak:           %d days\n", stats.StreakDays)
	if active != nil {
		fmt.Printf("  Active session:   %s since %s\n", active.Kind, active.StartedAt.Local().Format("15:04"))
	}
	fmt.Println()

	spend, err := chats.TotalSpend(ctx)
	if err != nil {
		return fmt.Errorf("computing spend: %w", err)
	}

	fmt.Println("  Assistant usage (all time):")
	fmt.Printf("    Conversations:   %d\n", sessions)
	fmt.Printf("    Input tokens:    %d\n", spend.InputTokens)
	fmt.Printf("    Output tokens:   %d\n", spend.OutputTokens)
	fmt.Printf("    Cost:            $%.4f\n", spend.CostUSD)
	fmt.Println()

	// The same usage re-priced per quality tier.
	fmt.Println("  Tier Comparison:")
	for _, tier := range []config.QualityTier{config.QualityLite, config.QualityNormal, config.QualityMax} {
		preset := config.GetPreset(cfg.Provider, tier)
		cost := llm.EstimateCost(preset.Model, spend.InputTokens, spend.OutputTokens)
		marker := " "
		if tier == cfg.Quality {
			marker = "*"
		}
		fmt.Printf("  %s %-8s ~$%.4f  (model: %s)\n", marker, tier, cost, preset.Model)
	}
	fmt.Println()
	fmt.Println("  * = current configuration")
	return nil
}
