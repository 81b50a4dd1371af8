package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/ampdev/amplifier-insights/internal/update"
)

func runUpdate(args []string) {
	var force bool
	cfg := mustLoadConfig("update", args, func(fs *flag.FlagSet) {
		fs.BoolVar(&force, "force", false, "bypass the cached check result")
	})

	fmt.Printf("Current version: %s\n", version)
	fmt.Println("Checking for updates...")

	info, err := update.Check(version, force, cfg.DataDir)
	if err != nil {
		log.Fatalf("update check failed: %v", err)
	}

	if info == nil {
		fmt.Println("You are on the latest version.")
		return
	}

	if update.IsDevBuild(version) {
		fmt.Printf("Latest release: %s\n", info.LatestVersion)
	} else {
		fmt.Printf("Update available: %s -> %s\n",
			info.CurrentVersion, info.LatestVersion)
	}
	fmt.Printf("Release page: %s\n", info.URL)
}
