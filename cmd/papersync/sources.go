package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/pevans/papersync/config"
	"github.com/pevans/papersync/sources"
)

func handleSources(cfg *config.FileConfig, args []string) {
	// Parse flags for sources command
	fs := flag.NewFlagSet("sources", flag.ExitOnError)
	fs.Parse(args)

	if len(cfg.Sources) == 0 {
		fmt.Println("No journals configured.")
		return
	}

	store, err := sources.NewSourceStore(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open source store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	rows := make([]sourceRow, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		row := sourceRow{config: sc}

		status, err := store.GetSource(sc.Name)
		switch {
		case err == nil:
			row.status = status
		case errors.Is(err, sources.ErrSourceNotFound):
			// Never synced
		default:
			fmt.Fprintf(os.Stderr, "Error: failed to get source status: %v\n", err)
			os.Exit(1)
		}

		rows = append(rows, row)
	}

	printSourcesTable(rows)
}
