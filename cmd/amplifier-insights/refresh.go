package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ampdev/amplifier-insights/internal/sync"
)

func runRefresh(args []string) {
	cfg := mustLoadConfig("refresh", args, nil)

	if _, err := os.Stat(cfg.ProjectsDir); os.IsNotExist(err) {
		log.Fatalf("Amplifier projects directory not found: %s\n"+
			"Make sure you have Amplifier installed and have run some sessions.",
			cfg.ProjectsDir)
	}

	database := mustOpenDB(cfg)
	defer database.Close()

	fmt.Printf("Scanning sessions in %s\n", cfg.ProjectsDir)

	engine := sync.NewEngine(database, cfg.ProjectsDir, cfg.UserID, cfg.Weeks)
	res, err := engine.Refresh(context.Background())
	if err != nil {
		log.Fatalf("refresh failed: %v", err)
	}

	if res.Found == 0 {
		fmt.Println("No sessions found. Run some Amplifier sessions first!")
		return
	}

	fmt.Printf("Processed %d of %d sessions\n", res.Saved, res.Found)
	if res.Failed > 0 {
		fmt.Printf("Warning: %d sessions failed to parse\n", res.Failed)
	}
	fmt.Printf("Computed metrics for the last %d weeks\n", res.WeeksComputed)
	fmt.Println()
	fmt.Println("All done! Run 'amplifier-insights show' to see your insights.")
}

func runWatch(args []string) {
	var debounce time.Duration
	cfg := mustLoadConfig("watch", args, func(fs *flag.FlagSet) {
		fs.DurationVar(&debounce, "debounce", 0,
			"delay before a change triggers a refresh")
	})
	if debounce <= 0 {
		debounce = cfg.Debounce
	}

	if _, err := os.Stat(cfg.ProjectsDir); os.IsNotExist(err) {
		log.Fatalf("Amplifier projects directory not found: %s", cfg.ProjectsDir)
	}

	database := mustOpenDB(cfg)
	defer database.Close()

	engine := sync.NewEngine(database, cfg.ProjectsDir, cfg.UserID, cfg.Weeks)

	// Initial refresh so the watcher starts from a current state.
	if res, err := engine.Refresh(context.Background()); err != nil {
		log.Fatalf("initial refresh failed: %v", err)
	} else {
		log.Printf("initial refresh: %d sessions, %d weeks computed",
			res.Saved, res.WeeksComputed)
	}

	watcher, err := sync.NewWatcher(debounce, func(paths []string) {
		res, err := engine.Refresh(context.Background())
		if err != nil {
			log.Printf("refresh failed: %v", err)
			return
		}
		log.Printf("refreshed: %d sessions, %d weeks computed",
			res.Saved, res.WeeksComputed)
	})
	if err != nil {
		log.Fatalf("creating watcher: %v", err)
	}

	watched, unwatched, err := watcher.WatchRecursive(cfg.ProjectsDir)
	if err != nil {
		log.Fatalf("watching %s: %v", cfg.ProjectsDir, err)
	}
	if unwatched > 0 {
		log.Printf("warning: %d directories could not be watched", unwatched)
	}
	log.Printf("watching %d directories under %s", watched, cfg.ProjectsDir)

	watcher.Start()
	defer watcher.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	log.Println("shutting down")
}
