package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ampdev/amplifier-insights/internal/db"
	"github.com/ampdev/amplifier-insights/internal/metrics"
)

func runStatus(args []string) {
	cfg := mustLoadConfig("status", args, nil)

	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
		log.Fatal("database not initialized; run 'amplifier-insights init' first")
	}

	database := mustOpenDB(cfg)
	defer database.Close()

	ctx := context.Background()
	stats, err := database.GetStats(ctx)
	if err != nil {
		log.Fatalf("fetching stats: %v", err)
	}

	if stats.SessionCount == 0 {
		fmt.Println("No sessions in database.")
		fmt.Println("Run 'amplifier-insights refresh' to scan your sessions.")
		return
	}

	fmt.Println("Database Status:")
	fmt.Println()
	fmt.Printf("  Total sessions:   %d\n", stats.SessionCount)
	fmt.Printf("  Total tool calls: %d\n", stats.TotalToolCalls)
	fmt.Printf("  Unique tools:     %d\n", stats.UniqueTools)

	toolCounts, err := database.ToolUsageSummary(ctx)
	if err != nil {
		log.Fatalf("fetching tool usage: %v", err)
	}
	if len(toolCounts) > 0 {
		fmt.Println()
		fmt.Println("Top 5 Tools:")
		top := toolCounts
		if len(top) > 5 {
			top = top[:5]
		}
		for i, tc := range top {
			pct := 0.0
			if stats.TotalToolCalls > 0 {
				pct = float64(tc.Count) / float64(stats.TotalToolCalls) * 100
			}
			fmt.Printf("  %d. %s: %d calls (%.0f%%)\n", i+1, tc.Name, tc.Count, pct)
		}
	}

	printCurrentWeek(ctx, database, cfg.UserID)
}

// printCurrentWeek shows the stored rollup for the current week, if
// one has been computed and holds any sessions.
func printCurrentWeek(ctx context.Context, database *db.DB, userID string) {
	weekStart := metrics.WeekStart(time.Now())
	week, err := database.GetWeeklyMetrics(ctx, userID, weekStart)
	if err != nil {
		log.Fatalf("fetching weekly metrics: %v", err)
	}
	if week == nil || week.SessionCount == 0 {
		return
	}

	fmt.Println()
	fmt.Printf("This Week (%s):\n", weekStart.Format("2006-01-02"))
	fmt.Printf("  Sessions: %d\n", week.SessionCount)
	fmt.Printf("  Duration: %dh %dm\n",
		week.TotalDurationSeconds/3600,
		(week.TotalDurationSeconds%3600)/60)
	fmt.Printf("  Delegation ratio: %.0f%%\n", week.DelegationRatio*100)
	fmt.Printf("  Error rate: %.0f%%\n", week.ErrorRate*100)
}
