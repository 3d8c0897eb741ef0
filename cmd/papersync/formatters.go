package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pevans/papersync/articles"
	"github.com/pevans/papersync/config"
	"github.com/pevans/papersync/ingest"
	"github.com/pevans/papersync/sources"
)

// printSyncResult prints the summary of a sync run
func printSyncResult(result *ingest.SyncResult, verbose bool) {
	fmt.Println()
	fmt.Println("Sync completed:")
	fmt.Printf("  Journals synced: %d\n", result.SourcesSynced)
	fmt.Printf("  Journals failed: %d\n", result.SourcesFailed)
	fmt.Printf("  Articles parsed: %d\n", result.ArticlesParsed)
	fmt.Printf("  Articles added: %d\n", result.ArticlesAdded)
	if result.Problems > 0 {
		fmt.Printf("  Field problems: %d\n", result.Problems)
	}

	if verbose {
		fmt.Println()
		for _, sr := range result.Sources {
			state := "ok"
			if sr.Err != nil {
				state = "failed at " + sr.Err.Stage
			}
			fmt.Printf("  %s: %s, %d parsed, %d added (%v)\n",
				sr.Name, state, sr.Parsed, sr.Added, sr.Duration.Round(time.Millisecond))
			for _, p := range sr.Problems {
				fmt.Printf("    %v\n", p)
			}
		}
	}

	// Show errors if any
	if len(result.Errors) > 0 {
		fmt.Println()
		fmt.Println("Errors:")
		for _, e := range result.Errors {
			fmt.Printf("  - %v\n", e)
		}
	}
}

// printListTable prints articles in human-readable table format
func printListTable(items []articles.Article, total int) {
	if len(items) == 0 {
		fmt.Println("No articles to display.")
		return
	}

	fmt.Printf("Showing %d of %d articles\n\n", len(items), total)

	for _, a := range items {
		title := truncate(orDefault(a.Title, "(untitled)"), 70)

		fmt.Printf("%s\n", title)
		fmt.Printf("   %s | %s | %s\n",
			a.Journal,
			orDefault(a.Date, "no date"),
			orDefault(a.Type, "Article"),
		)
		if a.Author != nil {
			fmt.Printf("   %s\n", truncate(*a.Author, 100))
		}
		if a.Abstract != nil {
			fmt.Println(indent(wrapText(truncate(*a.Abstract, 300), 76), "   "))
		}
		if a.Link != nil {
			fmt.Printf("   URL: %s\n", *a.Link)
		}
		fmt.Println()
	}
}

// printListJSON prints articles in JSON format
func printListJSON(items []articles.Article, total int) {
	output := map[string]any{
		"articles": items,
		"total":    total,
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to marshal JSON: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(string(data))
}

// printListCompact prints articles one per line
func printListCompact(items []articles.Article) {
	if len(items) == 0 {
		fmt.Println("No articles to display.")
		return
	}

	for _, a := range items {
		fmt.Printf("%-10s %s (%s)\n", orDefault(a.Date, "-"), orDefault(a.Title, "(untitled)"), a.Journal)
	}
}

type sourceRow struct {
	config config.SourceConfig
	status *sources.Source // nil if never synced
}

// printSourcesTable prints configured journals with their sync status
func printSourcesTable(rows []sourceRow) {
	fmt.Printf("%-34s %-5s %-8s %-8s %-17s %-7s %s\n",
		"NAME", "KIND", "MODE", "ENABLED", "LAST SUCCESS", "ERRORS", "ADDED")

	for _, r := range rows {
		mode := r.config.Mode
		if mode == "" {
			mode = "static"
		}
		enabled := "yes"
		if !r.config.IsEnabled() {
			enabled = "no"
		}

		lastSuccess, errorCount, added := "never", "-", "-"
		if r.status != nil {
			if r.status.LastSuccessAt != nil {
				lastSuccess = r.status.LastSuccessAt.Local().Format("2006-01-02 15:04")
			}
			errorCount = fmt.Sprintf("%d", r.status.FetchErrorCount)
			added = fmt.Sprintf("%d", r.status.ArticlesAdded)
		}

		fmt.Printf("%-34s %-5s %-8s %-8s %-17s %-7s %s\n",
			truncate(r.config.Name, 34), r.config.Kind, mode, enabled, lastSuccess, errorCount, added)

		if r.status != nil && r.status.LastError != nil {
			fmt.Printf("    last error: %s\n", truncate(*r.status.LastError, 100))
		}
	}
}

func orDefault(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}

// truncate shortens s to at most n runes
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

func indent(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

// wrapText wraps text to a maximum line width
func wrapText(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return text
	}

	var lines []string
	var currentLine strings.Builder

	for _, word := range words {
		if currentLine.Len() == 0 {
			currentLine.WriteString(word)
		} else if currentLine.Len()+1+len(word) <= width {
			currentLine.WriteString(" ")
			currentLine.WriteString(word)
		} else {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
			currentLine.WriteString(word)
		}
	}

	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}

	return strings.Join(lines, "\n")
}
