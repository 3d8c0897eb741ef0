package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pevans/papersync/articles"
	"github.com/pevans/papersync/config"
)

func handleList(cfg *config.FileConfig, args []string) {
	// Parse flags for list command
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	journal := fs.String("journal", "", "Only list articles from this journal")
	format := fs.String("format", "table", "Output format: table, json, compact")
	limit := fs.Int("limit", 0, "Show at most this many articles (0 for all)")
	fs.Parse(args)

	store, err := articles.NewArticleStore(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open article store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	var filter articles.Filter
	if *journal != "" {
		filter.Journal = journal
	}

	items, err := store.FetchAll(filter)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to list articles: %v\n", err)
		os.Exit(1)
	}

	total := len(items)
	if *limit > 0 && len(items) > *limit {
		items = items[:*limit]
	}

	switch *format {
	case "table":
		printListTable(items, total)
	case "json":
		printListJSON(items, total)
	case "compact":
		printListCompact(items)
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid format: %s (must be table, json, or compact)\n", *format)
		os.Exit(1)
	}
}

func handleClear(cfg *config.FileConfig, args []string) {
	// Parse flags for clear command
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Confirm deleting every stored article")
	fs.Parse(args)

	if !*yes {
		fmt.Fprintln(os.Stderr, "Error: clear deletes every stored article; rerun with -yes to confirm")
		os.Exit(1)
	}

	store, err := articles.NewArticleStore(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open article store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	removed, err := store.ClearAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to clear articles: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Deleted %d articles.\n", removed)
}
