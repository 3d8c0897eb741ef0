package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pevans/papersync/config"
)

func main() {
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	// With no command, or only flags, papersync runs a sync
	subcommand := "sync"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		subcommand = args[0]
		args = args[1:]
	}

	cfg, err := config.LoadConfigFile()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	switch subcommand {
	case "sync":
		handleSync(cfg, args)
	case "list":
		handleList(cfg, args)
	case "sources":
		handleSources(cfg, args)
	case "clear":
		handleClear(cfg, args)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command: %s\n\n", subcommand)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("papersync - Journal article listing sync")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  papersync [command] [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  sync       Fetch every configured journal and store new articles (default)")
	fmt.Println("  list       List stored articles")
	fmt.Println("  sources    Show configured journals and their last sync")
	fmt.Println("  clear      Delete every stored article")
	fmt.Println("  help       Show this help message")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  PAPERSYNC_CONFIG     Path to config file (default: ~/.papersync/config.yaml)")
	fmt.Println("  PAPERSYNC_DB         Path to article database (default: articles.db)")
	fmt.Println("  PAPERSYNC_LOG_LEVEL  debug, info, warn or error (default: info)")
}
