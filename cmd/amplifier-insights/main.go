// Command amplifier-insights computes weekly usage analytics from
// local Amplifier session logs and surfaces rule-based coaching tips.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	_ "time/tzdata"

	"github.com/ampdev/amplifier-insights/internal/config"
	"github.com/ampdev/amplifier-insights/internal/db"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = ""
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "init":
			runInit(os.Args[2:])
			return
		case "refresh":
			runRefresh(os.Args[2:])
			return
		case "status":
			runStatus(os.Args[2:])
			return
		case "show":
			runShow(os.Args[2:])
			return
		case "watch":
			runWatch(os.Args[2:])
			return
		case "update":
			runUpdate(os.Args[2:])
			return
		case "version", "--version", "-v":
			fmt.Printf("amplifier-insights %s (commit %s, built %s)\n",
				version, commit, buildDate)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	runShow(os.Args[1:])
}

func printUsage() {
	fmt.Printf(`amplifier-insights %s - insights into your AI collaboration effectiveness

Scans Amplifier session logs into SQLite, computes weekly usage
metrics with week-over-week growth, and surfaces coaching tips.

Usage:
  amplifier-insights show [query]     Show insights (default command)
  amplifier-insights init             Initialize the metrics database
  amplifier-insights refresh          Scan sessions and update metrics
  amplifier-insights status           Show database stats and current week
  amplifier-insights watch            Refresh automatically on session changes
  amplifier-insights update           Check for a newer release
  amplifier-insights version          Show version information
  amplifier-insights help             Show this help

Show queries:
  weekly                 Weekly summary with tips (default)
  tools                  All-time tool usage breakdown
  growth                 Week-over-week growth report
  "How am I doing?"      Free text, routed by keyword

Common flags:
  -data-dir string       Data directory (database, config)
  -projects-dir string   Amplifier projects directory
  -user string           User ID for weekly rollups (default "local")
  -weeks int             Number of recent weeks to recompute (default 4)

Environment variables:
  AMPLIFIER_PROJECTS_DIR        Amplifier projects directory
  AMPLIFIER_INSIGHTS_DATA_DIR   Data directory (database, config)
  AMPLIFIER_INSIGHTS_USER       User ID for weekly rollups
  AMPLIFIER_INSIGHTS_WEEKS      Number of recent weeks to recompute

Data is stored in ~/.amplifier-insights/ by default.
`, version)
}

// commonFlags registers the flags shared by every subcommand.
func commonFlags(fs *flag.FlagSet) {
	fs.String("data-dir", "", "data directory (database, config)")
	fs.String("projects-dir", "", "Amplifier projects directory")
	fs.String("user", "", "user ID for weekly rollups")
	fs.Int("weeks", 0, "number of recent weeks to recompute")
}

// mustLoadConfig parses args into a FlagSet and loads the layered
// configuration.
func mustLoadConfig(name string, args []string, extra func(*flag.FlagSet)) config.Config {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	commonFlags(fs)
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		log.Fatalf("parsing flags: %v", err)
	}

	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	return cfg
}

func mustOpenDB(cfg config.Config) *db.DB {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	return database
}

func runInit(args []string) {
	cfg := mustLoadConfig("init", args, nil)

	fmt.Printf("Initializing database at %s\n", cfg.DBPath)
	database := mustOpenDB(cfg)
	defer database.Close()

	fmt.Println("Database initialized successfully")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Run 'amplifier-insights refresh' to scan your sessions")
	fmt.Println("  2. Run 'amplifier-insights show' to see your insights")
}
