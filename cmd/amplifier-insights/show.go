package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ampdev/amplifier-insights/internal/insights"
)

func runShow(args []string) {
	cfg := mustLoadConfig("show", args, nil)

	// Positional args left after flag parsing form the query.
	query := "weekly"
	if rest := flagArgs("show", args); len(rest) > 0 {
		query = strings.Join(rest, " ")
	}

	if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
		log.Fatal("database not initialized; run 'amplifier-insights init' first")
	}

	database := mustOpenDB(cfg)
	defer database.Close()

	engine := insights.NewEngine(database, cfg.UserID)
	ctx := context.Background()

	switch insights.RouteQuery(query) {
	case insights.QueryTools:
		report, err := engine.ToolUsage(ctx)
		if err != nil {
			log.Fatalf("querying tool usage: %v", err)
		}
		fmt.Println(insights.FormatToolUsage(report))

	case insights.QueryGrowth:
		report, err := engine.Growth(ctx)
		if err != nil {
			log.Fatalf("querying growth: %v", err)
		}
		fmt.Println(insights.FormatGrowth(report))

	default:
		summary, err := engine.WeeklySummary(ctx, insights.RangeThisWeek)
		if err != nil {
			log.Fatalf("querying weekly summary: %v", err)
		}
		fmt.Println(insights.FormatSummary(summary))
	}
}

// flagArgs re-parses args with the shared flag set and returns the
// remaining positional arguments.
func flagArgs(name string, args []string) []string {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	commonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil
	}
	return fs.Args()
}
