package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pevans/papersync/articles"
	"github.com/pevans/papersync/config"
	"github.com/pevans/papersync/fetch"
	"github.com/pevans/papersync/ingest"
	"github.com/pevans/papersync/sources"
)

func handleSync(cfg *config.FileConfig, args []string) {
	// Parse flags for sync command
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	only := fs.String("source", "", "Sync only the journal with this name")
	verbose := fs.Bool("verbose", false, "Show per-journal results and debug logs")
	fs.Parse(args)

	// runSync returns instead of exiting so the browser is always released
	if code := runSync(cfg, *only, *verbose); code != 0 {
		os.Exit(code)
	}
}

func runSync(cfg *config.FileConfig, only string, verbose bool) int {
	logger, err := newLogger(cfg, verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	srcs, err := ingest.SourcesFromConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid sources: %v\n", err)
		return 1
	}
	if len(srcs) == 0 {
		fmt.Println("No journals enabled.")
		return 0
	}

	store, err := articles.NewArticleStore(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open article store: %v\n", err)
		return 1
	}
	defer store.Close()

	status, err := sources.NewSourceStore(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open source store: %v\n", err)
		return 1
	}
	defer status.Close()

	pool := fetch.NewPool(cfg.FetchOptions(logger))
	defer pool.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service := ingest.NewSyncService(pool, store, status, srcs, ingest.Options{
		AbstractRate: cfg.Abstracts.Rate,
		Logger:       logger,
	})

	if only != "" {
		fmt.Printf("Syncing journal: %s\n", only)
	} else {
		fmt.Printf("Syncing %d journals...\n", len(srcs))
	}

	result, err := service.SyncSources(ctx, only)
	if result == nil {
		fmt.Fprintf(os.Stderr, "Error: sync failed: %v\n", err)
		return 1
	}

	printSyncResult(result, verbose)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if result.SourcesFailed > 0 {
		return 1
	}
	return 0
}
