// Package main is the entry point for the steamback daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/deckops/steamback/internal/config"
	"github.com/deckops/steamback/internal/database"
	"github.com/deckops/steamback/internal/router"
	"github.com/deckops/steamback/internal/services"
	"github.com/deckops/steamback/internal/steam"
	"github.com/deckops/steamback/internal/version"
)

func main() {
	// Check for subcommands first
	if len(os.Args) > 1 && os.Args[1] == "version" {
		printVersion()
		os.Exit(0)
	}

	configPath := flag.String("config", "", "path to config file")
	showVersion := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("Warning: Could not load config from %s: %v", *configPath, err)
		log.Println("Using default configuration...")
		cfg, _ = config.Load("")
	}

	db, err := database.New(cfg.Data.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	layout := steam.NewLayout(cfg.Steam.RootDir)
	auditService := services.NewAuditService(db)
	snapshotService := services.NewSnapshotService(db, cfg, layout, auditService)

	ids, err := snapshotService.AutoDetectAccounts()
	if err != nil {
		log.Printf("Warning: could not detect steam accounts under %s: %v", cfg.Steam.RootDir, err)
	} else {
		log.Printf("Detected steam accounts: %v", ids)
	}
	if len(snapshotService.AccountIDs()) == 0 {
		log.Println("No steam accounts known yet; waiting for set_account_id")
	}

	watcherService := services.NewWatcherService(snapshotService, layout, cfg.Watcher.GetPollInterval())
	if cfg.Watcher.Disabled {
		log.Println("Game watcher disabled by configuration")
	} else {
		watcherService.Start(context.Background())
		defer watcherService.Stop()
	}

	r := router.New(snapshotService, watcherService)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("steamback %s starting on %s", version.Version, addr)
	log.Printf("Steam root: %s, data dir: %s", cfg.Steam.RootDir, cfg.Data.Dir)

	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func printVersion() {
	fmt.Printf("steamback %s\n", version.Version)
	fmt.Printf("Build Time: %s\n", version.BuildTime)
	fmt.Printf("Git Commit: %s\n", version.GitCommit)
}
